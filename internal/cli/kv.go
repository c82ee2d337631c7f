package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-ambient"
	"github.com/goliatone/go-ambient/internal/codec"
	"github.com/goliatone/go-ambient/internal/config"
	"github.com/goliatone/go-ambient/pkg/activity"
	"github.com/spf13/cobra"
)

type entryResult struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
	Raw   string `json:"raw"`
}

func openBackend(cmd *cobra.Command, opts *RootOptions) (*config.Backend, error) {
	backend, err := config.Open(cmd.Context(), opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open storage", err)
	}
	return backend, nil
}

func bindingOptions(opts *RootOptions, onError func(error)) []ambient.BindingOption {
	logger := opts.Logger
	hook := activity.HookFunc(func(_ context.Context, event activity.Event) error {
		logger.Debug("ambient activity", "verb", event.Verb, "key", event.ObjectID, "actor", event.ActorID, "channel", event.Channel)
		return nil
	})
	return []ambient.BindingOption{
		ambient.WithLogger(ambient.SlogLogger(logger)),
		ambient.WithErrorCallback(onError),
		ambient.WithActivity(activity.NewEmitter(activity.Hooks{hook}, activity.Config{
			Enabled: opts.Verbose,
			Channel: "cli",
			ActorID: "ambientctl",
			Verbs:   []string{activity.VerbBindingWritten, activity.VerbBindingWriteFailed},
			Timeout: time.Second,
		})),
	}
}

// NewGetCommand prints the value stored under a key.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := openBackend(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			key := args[0]
			raw, ok, err := backend.Get(key)
			if err != nil {
				return WrapExitError(ExitCommandError, "read "+key, err)
			}
			if !ok {
				return NewExitError(ExitFailure, fmt.Sprintf("key %q not found", key))
			}

			var readErr error
			value := ambient.Initialize[any](key, ambient.Literal[any](nil), backend,
				bindingOptions(opts, func(err error) { readErr = err })...)
			if readErr != nil {
				return WrapExitError(ExitCommandError, "read "+key, readErr)
			}
			text, err := codec.Encode(value)
			if err != nil {
				text = raw
			}
			return newOutput(opts, cmd.OutOrStdout()).emit(entryResult{Key: key, Value: value, Raw: raw}, text)
		},
	}
}

// NewSetCommand stores a value under a key. Values that are not valid JSON
// are stored as JSON strings.
func NewSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store value under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := openBackend(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			key := args[0]
			value := parseValue(args[1])

			var writeErr error
			binding := ambient.NewBinding[any](key, ambient.Literal[any](nil), backend,
				bindingOptions(opts, func(err error) { writeErr = err })...)
			writeErr = nil
			binding.Set(value)
			if writeErr != nil {
				return WrapExitError(ExitFailure, "write "+key, writeErr)
			}

			raw, _, _ := backend.Get(key)
			return newOutput(opts, cmd.OutOrStdout()).emit(entryResult{Key: key, Value: value, Raw: raw}, raw)
		},
	}
}

// NewKeysCommand lists stored keys.
func NewKeysCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := openBackend(cmd, opts)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			keys, err := backend.Keys()
			if err != nil {
				return WrapExitError(ExitCommandError, "list keys", err)
			}
			if keys == nil {
				keys = []string{}
			}
			return newOutput(opts, cmd.OutOrStdout()).emit(keys, strings.Join(keys, "\n"))
		},
	}
}

func parseValue(text string) any {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return text
	}
	return value
}
