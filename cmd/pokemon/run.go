package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pokemon-vct/pokemon/internal/output"
	"github.com/pokemon-vct/pokemon/internal/pipeline"
	"github.com/pokemon-vct/pokemon/internal/refmap"
	"github.com/pokemon-vct/pokemon/internal/structure"
)

func newRunCmd() *cobra.Command {
	var (
		opts          pipeline.Options
		covList       string
		refMapping    string
		refStructures string
		outputFile    string
		header        bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Test a gene's structural variant kernel against a phenotype",
		Example: `  pokemon run --gene KRAS --genotype kras.raw \
    --ref-mapping mapping.tsv --ref-structures structures/
  pokemon run --gene KRAS --genotype kras.raw --cov-file cov.txt --cov-list age,PC1 \
    --ref-mapping mapping.tsv --ref-structures structures/ --bandwidth 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.Gene == "":
				return usagef("--gene is required")
			case opts.GenotypePath == "":
				return usagef("--genotype is required")
			case refMapping == "":
				return usagef("--ref-mapping is required")
			case refStructures == "":
				return usagef("--ref-structures is required")
			}
			if covList != "" {
				opts.Covariates = strings.Split(covList, ",")
			}
			opts.Bandwidth = viper.GetFloat64("run.bandwidth")
			opts.Alpha = viper.GetFloat64("run.alpha")
			opts.Rho = viper.GetFloat64("run.rho")

			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			store, err := openReferenceMapping(cmd, refMapping, viper.GetString("refmap.db"), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			out := os.Stdout
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			w := output.NewResultWriter(out)
			if header {
				w.WithHeader()
			}
			if err := w.WriteHeader(); err != nil {
				return err
			}

			runner := pipeline.NewRunner(store, structure.NewDirSource(refStructures))
			runner.SetLogger(logger)
			if err := runner.Run(cmd.Context(), opts, w); err != nil {
				w.Flush() //nolint:errcheck
				return err
			}
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Gene, "gene", "", "Gene (transcript) name as used in the reference mapping")
	f.StringVar(&opts.GenotypePath, "genotype", "", "Genotype file from plink --recode A")
	f.StringVar(&opts.CovariatePath, "cov-file", "", "Covariate file in plink format")
	f.StringVar(&covList, "cov-list", "", "Comma-separated covariate names")
	f.StringVar(&refMapping, "ref-mapping", "", "Variant to residue reference mapping (TSV)")
	f.StringVar(&refStructures, "ref-structures", "", "Directory of per-structure coordinate files")
	f.Float64("bandwidth", pipeline.DefaultBandwidth, "Spatial decay bandwidth in Å")
	f.Float64("alpha", pipeline.DefaultAlpha, "Weight of allele-frequency weights in the combined kernel")
	f.Float64("rho", pipeline.DefaultRho, "Weight of structural weights in the combined kernel")
	f.String("refmap-db", "", "DuckDB file caching the imported reference mapping (default: in-memory)")
	f.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	f.BoolVar(&header, "header", false, "Write a column header line")

	bindFlag(cmd, "run.bandwidth", "bandwidth")
	bindFlag(cmd, "run.alpha", "alpha")
	bindFlag(cmd, "run.rho", "rho")
	bindFlag(cmd, "refmap.db", "refmap-db")

	return cmd
}

// openReferenceMapping imports the reference mapping into DuckDB. With a
// database path the import is reused while the TSV is unchanged.
func openReferenceMapping(cmd *cobra.Command, tsv, dbPath string, logger *zap.Logger) (*refmap.Store, error) {
	store, err := refmap.Open(dbPath)
	if err != nil {
		return nil, err
	}
	store.SetLogger(logger)

	if dbPath == "" {
		err = store.Load(cmd.Context(), tsv)
	} else {
		err = store.LoadCached(cmd.Context(), tsv)
	}
	if err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
