package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-ambient"
	"github.com/goliatone/go-ambient/internal/codec"
	"github.com/goliatone/go-ambient/pkg/metrics"
	"github.com/goliatone/go-ambient/pkg/source"
	"github.com/nats-io/nats.go"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// WatchOptions holds flags shared by watch and listen.
type WatchOptions struct {
	Event       string
	Condition   string
	Engine      string // "expr" | "cel" | "js"
	Once        bool
	MetricsAddr string
}

type eventResult struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

func (w *WatchOptions) bind(cmd *cobra.Command, defaultEvent string) {
	if defaultEvent != "" {
		cmd.Flags().StringVarP(&w.Event, "event", "e", defaultEvent, "event name to subscribe to")
	}
	cmd.Flags().StringVarP(&w.Condition, "condition", "c", "", "only print events matching this expression")
	cmd.Flags().StringVar(&w.Engine, "engine", "expr", "condition engine (expr|cel|js)")
	cmd.Flags().BoolVar(&w.Once, "once", false, "exit after the first matching event")
	cmd.Flags().StringVar(&w.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func (w *WatchOptions) evaluator() (ambient.Evaluator, error) {
	switch w.Engine {
	case "", "expr":
		return ambient.NewExprEvaluator(), nil
	case "cel":
		return ambient.NewCELEvaluator(), nil
	case "js":
		if e := ambient.NewJSEvaluator(); e != nil {
			return e, nil
		}
		return nil, fmt.Errorf("js engine requires a build with the js_eval tag")
	default:
		return nil, fmt.Errorf("unknown engine %q: must be expr, cel or js", w.Engine)
	}
}

// NewWatchCommand prints filesystem events for a path.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	watch := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Print filesystem events for path",
		Long: "Print filesystem events for path until interrupted.\n\n" +
			"Events: create, write, remove, rename, chmod, change (any of them).\n" +
			"Conditions see the payload fields path, name and op.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsw, err := source.NewFSWatch(source.WithFSLogger(opts.Logger))
			if err != nil {
				return WrapExitError(ExitCommandError, "start watcher", err)
			}
			defer func() { _ = fsw.Close() }()
			if err := fsw.Add(args[0]); err != nil {
				return WrapExitError(ExitCommandError, "watch "+args[0], err)
			}
			return runWatch(cmd, opts, watch, fsw, watch.Event, source.FileEventFields)
		},
	}
	watch.bind(cmd, source.EventChange)
	return cmd
}

// NewListenCommand prints messages published on a NATS subject.
func NewListenCommand(opts *RootOptions) *cobra.Command {
	watch := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "listen <subject>",
		Short: "Print messages published on a NATS subject",
		Long: "Print messages published on a NATS subject (wildcards allowed) until interrupted.\n\n" +
			"The server is taken from AMBIENT_NATS_URL. Conditions see the payload fields\n" +
			"subject, reply, header and data.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := nats.Connect(opts.Config.NATSURL)
			if err != nil {
				return WrapExitError(ExitCommandError, "connect to NATS", err)
			}
			defer conn.Close()
			return runWatch(cmd, opts, watch, source.NewNATSSubjects(conn), args[0], source.MessageFields)
		},
	}
	watch.bind(cmd, "")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *RootOptions, watch *WatchOptions, src ambient.EventSource, event string, fields []string) error {
	ctx := cmd.Context()
	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	if watch.MetricsAddr != "" {
		stop := serveMetrics(opts, watch.MetricsAddr, reg)
		defer stop()
	}

	subOpts := []ambient.SubscribeOption{
		ambient.WithSubscriptionLogger(ambient.SlogLogger(opts.Logger)),
		ambient.WithSubscriptionRecorder(recorder),
	}
	if watch.Condition != "" {
		evaluator, err := watch.evaluator()
		if err != nil {
			return WrapExitError(ExitCommandError, "condition", err)
		}
		subOpts = append(subOpts,
			ambient.WithCondition(watch.Condition),
			ambient.WithEvaluator(evaluator),
			ambient.WithPayloadFields(fields...),
		)
	}
	if watch.Once {
		subOpts = append(subOpts, ambient.WithOnce())
	}

	out := newOutput(opts, cmd.OutOrStdout())
	done := make(chan struct{})
	var (
		mu       sync.Mutex
		doneOnce sync.Once
	)
	handler := func(evt ambient.Event) {
		mu.Lock()
		defer mu.Unlock()
		text, err := codec.Encode(evt.Payload)
		if err != nil {
			text = fmt.Sprint(evt.Payload)
		}
		line := fmt.Sprintf("%s %s %s", evt.Time.Format(time.RFC3339), evt.Type, text)
		if err := out.emit(eventResult{Type: evt.Type, Time: evt.Time, Payload: evt.Payload}, line); err != nil {
			opts.Logger.Warn("write event", "error", err)
		}
		if watch.Once {
			doneOnce.Do(func() { close(done) })
		}
	}

	scope := ambient.NewScope()
	defer scope.Close()
	if err := scope.Subscribe(src, event, handler, subOpts...); err != nil {
		return WrapExitError(ExitCommandError, "subscribe "+event, err)
	}
	opts.Logger.Info("watching", "event", event, "condition", watch.Condition)

	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}

func serveMetrics(opts *RootOptions, addr string, reg *prom.Registry) func() {
	srv := &http.Server{Addr: addr, Handler: metrics.HTTPHandler(reg), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			opts.Logger.Error("metrics server", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
