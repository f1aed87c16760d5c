package main

import (
	"github.com/spf13/cobra"

	"campus-assistant/internal/questionlog"
	"campus-assistant/internal/server"
	"campus-assistant/internal/vectorstore"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := currentConfig

		var (
			ix     *vectorstore.Index
			syncer server.Syncer
		)
		if usesIndex(cfg) {
			var err error
			if ix, err = openIndex(ctx, cfg); err != nil {
				return err
			}
			defer ix.Close()
			s, err := newSyncer(cfg, ix)
			if err != nil {
				return err
			}
			syncer = s
		}

		r, err := newRAG(ctx, cfg, ix)
		if err != nil {
			return err
		}
		defer r.Close()
		questions := questionlog.New(cfg.QuestionLogURL(), cfg.Timeout())

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.New(r, syncer, questions, cfg.Server.EmailDomain).Run(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}
