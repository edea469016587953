package main

import (
	"fmt"
	"net/http"

	"github.com/laonahongchen/PintOS-SJTU/caller"
	"github.com/laonahongchen/PintOS-SJTU/frame"
	"github.com/laonahongchen/PintOS-SJTU/fs"
	"github.com/laonahongchen/PintOS-SJTU/mem"
	"github.com/laonahongchen/PintOS-SJTU/stats"
	"github.com/laonahongchen/PintOS-SJTU/swap"
	"github.com/laonahongchen/PintOS-SJTU/ufs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func statsRegisterCache(reg prometheus.Registerer, st *fs.CacheStats_t) func() {
	return stats.PrometheusGauges(reg, "kernelctl_cache", st)
}

func statsRegisterFrame(reg prometheus.Registerer, st *frame.Stats_t) func() {
	return stats.PrometheusGauges(reg, "kernelctl_frame", st)
}

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve <image>",
	Short: "Boot an image and serve its block-cache and frame-table counters as Prometheus metrics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}

		fsys, ferr := ufs.ReopenFS(args[0])
		if ferr != nil {
			return caller.WrapFatal(ferr, "reopen "+args[0])
		}
		defer ufs.ShutdownFS(fsys)

		phys := mem.Phys_init(cfg.Frames)
		sd := swap.MkDevice(cfg.SwapSlots)
		ft := frame.MkTable(phys, sd)

		reg := prometheus.NewRegistry()
		refreshCache := statsRegisterCache(reg, fsys.CacheStats())
		refreshFrame := statsRegisterFrame(reg, &ft.Stats)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			refreshCache()
			refreshFrame()
			fmt.Fprintln(w, "ok")
		})

		fmt.Printf("serving metrics for %s on %s\n", args[0], metricsAddr)
		return http.ListenAndServe(metricsAddr, withRefresh(mux, refreshCache, refreshFrame))
	},
}

// withRefresh wraps mux so every scrape first pulls the latest counter
// values into the registered gauges -- stats.PrometheusGauges returns a
// pull function rather than pushing on every Inc, to keep the hot path
// lock-free.
func withRefresh(mux http.Handler, refreshers ...func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, refresh := range refreshers {
			refresh()
		}
		mux.ServeHTTP(w, r)
	})
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9141", "address to serve Prometheus metrics on")
}
