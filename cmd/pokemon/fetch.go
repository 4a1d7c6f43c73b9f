package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pokemon-vct/pokemon/internal/pdb"
)

func newFetchCmd() *cobra.Command {
	var (
		outDir  string
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "fetch <structure-id>...",
		Short: "Download PDB entries and write residue coordinate files",
		Long: `Download PDB entries from RCSB and write one coordinate file per entry,
holding the Cα position of every residue of the first model. The output
directory can be passed to 'pokemon run --ref-structures'.`,
		Example: `  pokemon fetch --out structures/ 4OBE 6GOD`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			client := pdb.NewClient()
			client.SetLogger(logger)
			if baseURL != "" {
				client.BaseURL = baseURL
			}

			for _, id := range args {
				n, err := client.Fetch(cmd.Context(), id, outDir)
				if err != nil {
					return err
				}
				logger.Info("wrote coordinates", zap.String("structure", id), zap.Int("residues", n))
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", id, n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Download service URL (default: "+pdb.DefaultBaseURL+")")
	return cmd
}
