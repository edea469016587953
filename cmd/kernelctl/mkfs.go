package main

import (
	"fmt"
	"strconv"

	"github.com/laonahongchen/PintOS-SJTU/caller"
	"github.com/laonahongchen/PintOS-SJTU/ufs"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
	"github.com/spf13/cobra"
)

var mkfsCmd = &cobra.Command{
	Use:   "mkfs <image> [size]",
	Short: "Format a fresh disk image",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		nsectors := cfg.DataBlocks
		if len(args) == 2 {
			n, perr := strconv.Atoi(args[1])
			if perr != nil || n <= 0 {
				return fmt.Errorf("bad sector count %q", args[1])
			}
			nsectors = n
		}

		fsys, berr := ufs.BootFS(args[0], nsectors)
		if berr != nil {
			return caller.WrapFatal(berr, "format "+args[0])
		}
		defer ufs.ShutdownFS(fsys)

		if _, serr := fsys.Stat(ustr.MkUstrRoot()); serr != 0 {
			return fmt.Errorf("format produced an unreadable root inode: %v", serr)
		}
		fmt.Printf("formatted %s: %d sectors\n", args[0], nsectors)
		return nil
	},
}
