package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ValentinKolb/kvkit/cmd/util"
	"github.com/ValentinKolb/kvkit/lib/common"
	"github.com/ValentinKolb/kvkit/lib/loader"
	vmetrics "github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
)

var (
	log = logger.GetLogger("cmd")

	WatchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Keep a store in sync with its source",
		Long: `Load the configured source and reload it whenever the trigger fires.
With --metrics the store, loader and trigger metrics are served in the
Prometheus text format under /metrics. Stops on SIGINT or SIGTERM.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return util.BindCommandFlags(cmd)
		},
		RunE: run,
	}
)

func init() {
	key := "trigger"
	WatchCmd.Flags().String(key, "", util.WrapString("Change trigger (file, poll, none)"))

	key = "debounce"
	WatchCmd.Flags().Duration(key, 0, util.WrapString("Quiet period after the last file event before a reload (file trigger)"))

	key = "interval"
	WatchCmd.Flags().Duration(key, 0, util.WrapString("Probe interval (poll trigger)"))

	key = "metrics"
	WatchCmd.Flags().String(key, "", util.WrapString("Address to serve /metrics on (e.g. localhost:9100), empty to disable"))
}

func run(cmd *cobra.Command, _ []string) error {
	conf, err := util.GetConfig()
	if err != nil {
		return err
	}
	log.Infof("starting with configuration:\n%s", conf)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, records, err := util.BuildLoader(ctx, conf, true)
	if err != nil {
		return err
	}

	l.OnChange(func(_ context.Context, ev loader.Event[string, string]) error {
		switch ev.Kind {
		case loader.EventDeleted:
			log.Warningf("%s was removed, keeping the loaded data", records)
		default:
			log.Infof("%s reloaded: applied=%d deleted=%d skipped=%d in %s",
				records, ev.Report.Applied, ev.Report.Deleted, ev.Report.Skipped, ev.Report.Duration)
		}
		return nil
	})

	var srv *http.Server
	if conf.Metrics.Endpoint != "" {
		srv = serveMetrics(conf.Metrics, l)
	}

	if err := l.Start(ctx); err != nil {
		_ = l.Close()
		shutdown(srv)
		return err
	}
	log.Infof("watching %s with strategy %s", records, l.Strategy())

	<-ctx.Done()
	log.Infof("shutting down")

	shutdown(srv)
	return l.Close()
}

func serveMetrics(conf common.MetricsConfig, l *util.Loader) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		vmetrics.WritePrometheus(w, true)
		writeRegistry(w, "kvkit_loader", l.Metrics())
	})
	srv := &http.Server{Addr: conf.Endpoint, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
	log.Infof("serving metrics on http://%s/metrics", conf.Endpoint)
	return srv
}

func shutdown(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warningf("metrics server shutdown: %v", err)
	}
}

// writeRegistry renders a go-metrics registry in the Prometheus text format.
// Only counters and histograms are registered by the loader.
func writeRegistry(w io.Writer, prefix string, r metrics.Registry) {
	r.Each(func(name string, i any) {
		switch m := i.(type) {
		case metrics.Counter:
			fmt.Fprintf(w, "%s_%s %d\n", prefix, name, m.Count())
		case metrics.Histogram:
			for _, q := range []float64{0.5, 0.9, 0.99} {
				fmt.Fprintf(w, "%s_%s{quantile=\"%g\"} %g\n", prefix, name, q, m.Percentile(q))
			}
			fmt.Fprintf(w, "%s_%s_sum %d\n", prefix, name, m.Sum())
			fmt.Fprintf(w, "%s_%s_count %d\n", prefix, name, m.Count())
		}
	})
}
