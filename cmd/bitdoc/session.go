package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/config"
)

const prompt = "bitdoc> "

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Edit interactively with autosave",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ws := pkg.OpenWorkspace(cfg, logger)
			defer ws.Close()

			c := &console{
				ws:       ws,
				renderer: newRenderer(),
				out:      cmd.OutOrStdout(),
				encoding: cfg.Encoding,
				now:      time.Now,
				logger:   logger.Named("console"),
			}
			return runSession(c, cfg, os.Stdin, stdinIsTerminal(), logger)
		},
	}
}

func stdinIsTerminal() bool {
	return isTerminal(os.Stdin)
}

// runSession is the single event loop of an interactive session. It owns
// the workspace: input lines, autosave ticks and termination signals are
// all handled here, one at a time.
func runSession(c *console, cfg config.Config, in io.Reader, interactive bool, logger hclog.Logger) error {
	autosave := cfg.Autosave
	if autosave {
		if err := c.ws.Lock(); err != nil {
			logger.Warn("⚠️ Autosave disabled", "reason", err)
			c.printf("Another session holds %s; changes will not be saved.\n", c.ws.Slot.Path())
			autosave = false
		}
	}

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Debug("Input closed", "error", err)
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	var tick <-chan time.Time
	if autosave {
		ticker := time.NewTicker(cfg.AutosaveInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	c.printf("%s", c.renderer.View(c.ws.Session))
	showPrompt := func() {
		if interactive {
			c.printf("%s", prompt)
		}
	}
	showPrompt()

	defer func() {
		if autosave {
			c.ws.Save()
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				logger.Debug("End of input")
				return nil
			}
			if c.Execute(line) {
				return nil
			}
			showPrompt()
		case <-tick:
			c.ws.Saver.Tick()
		case sig := <-signals:
			logger.Info("🛑 Received signal, saving session", "signal", sig)
			if interactive {
				fmt.Fprintln(c.out)
			}
			return nil
		}
	}
}
