package main

import (
	"fmt"

	"github.com/laonahongchen/PintOS-SJTU/ufs"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <image> <path>",
	Short: "List a directory's entries on a booted image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fsys, err := ufs.ReopenFS(args[0])
		if err != nil {
			return err
		}
		defer ufs.ShutdownFS(fsys)

		entries, ferr := fsys.Ls(ustr.Ustr(args[1]))
		if ferr != 0 {
			return fmt.Errorf("ls %s: %v", args[1], ferr)
		}
		for name, st := range entries {
			kind := "f"
			if st.Mode() == dirMode {
				kind = "d"
			}
			fmt.Printf("%s %8d %s\n", kind, st.Size(), name)
		}
		return nil
	},
}
