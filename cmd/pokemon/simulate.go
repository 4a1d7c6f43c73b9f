package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pokemon-vct/pokemon/internal/output"
	"github.com/pokemon-vct/pokemon/internal/pipeline"
	"github.com/pokemon-vct/pokemon/internal/refmap"
	"github.com/pokemon-vct/pokemon/internal/simulate"
)

func newSimulateCmd() *cobra.Command {
	var (
		caseFile    string
		controlFile string
		reference   string
		gene        string
		outDir      string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate phenotypes from structurally correlated variant effects",
		Long: `Simulate genotypes for case and control variants, map them onto the gene's
structures by genomic position and draw a phenotype per structure from the
case variants' spatial effect kernel. For each structure a phenotype table and
a PyMOL script coloring residues by effect are written to --out-dir. With
--replicates, the association test is run on repeated phenotype draws and the
estimated power is printed.`,
		Example: `  pokemon simulate --case BRCA1_case.tsv --control BRCA1_ctrl.tsv --reference positions.tsv
  pokemon simulate --case BRCA1_case.tsv --control BRCA1_ctrl.tsv --reference positions.tsv \
    --replicates 200 --workers 8 --out-dir sim/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case caseFile == "":
				return usagef("--case is required")
			case controlFile == "":
				return usagef("--control is required")
			case reference == "":
				return usagef("--reference is required")
			}
			if gene == "" {
				gene = simulate.GeneFromFileName(caseFile)
			}

			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			caseIDs, err := simulate.ReadVariants(caseFile)
			if err != nil {
				return err
			}
			controlIDs, err := simulate.ReadVariants(controlFile)
			if err != nil {
				return err
			}

			store, err := refmap.Open("")
			if err != nil {
				return err
			}
			defer store.Close()
			store.SetLogger(logger)
			if err := store.LoadPositionReference(cmd.Context(), reference); err != nil {
				return err
			}

			cfg := simulate.Config{
				Gene:        gene,
				Case:        caseIDs,
				Control:     controlIDs,
				Individuals: viper.GetInt("simulate.individuals"),
				Frequency:   viper.GetFloat64("simulate.frequency"),
				CaseEffect:  viper.GetFloat64("simulate.case_effect"),
				Bandwidth:   viper.GetFloat64("simulate.bandwidth"),
				Seed:        viper.GetUint64("simulate.seed"),
				Alpha:       viper.GetFloat64("simulate.alpha"),
				Rho:         viper.GetFloat64("simulate.rho"),
				Power: simulate.PowerConfig{
					Replicates:   viper.GetInt("simulate.replicates"),
					Seed:         viper.GetUint64("simulate.seed"),
					Significance: viper.GetFloat64("simulate.significance"),
					Workers:      viper.GetInt("simulate.workers"),
				},
			}

			wf := simulate.NewWorkflow(store)
			wf.SetLogger(logger)
			res, err := wf.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return writeSimulation(res, gene, outDir, cfg.Power.Replicates > 0, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&caseFile, "case", "", "Case variant file (VCF-like TSV with header)")
	f.StringVar(&controlFile, "control", "", "Control variant file (VCF-like TSV with header)")
	f.StringVar(&reference, "reference", "", "Position to residue coordinate reference (TSV)")
	f.StringVar(&gene, "gene", "", "Gene name (default: case file name prefix before '_')")
	f.StringVar(&outDir, "out-dir", ".", "Directory for phenotype tables and PyMOL scripts")
	f.Int("individuals", simulate.DefaultIndividuals, "Number of simulated individuals")
	f.Float64("frequency", simulate.DefaultFrequency, "Allele frequency of every simulated variant")
	f.Float64("case-effect", simulate.DefaultCaseEffect, "Effect size of case variants")
	f.Float64("bandwidth", simulate.DefaultBandwidth, "Spatial decay bandwidth in Å")
	f.Uint64("seed", 1, "Random seed")
	f.Int("replicates", 0, "Phenotype replicates for power estimation (0 disables)")
	f.Float64("significance", simulate.DefaultSignificance, "Significance level for power estimation")
	f.Int("workers", 0, "Parallel replicate workers (0 = all CPUs)")
	f.Float64("alpha", pipeline.DefaultAlpha, "Weight of allele-frequency weights in the test kernel")
	f.Float64("rho", pipeline.DefaultRho, "Weight of structural weights in the test kernel")

	bindFlag(cmd, "simulate.individuals", "individuals")
	bindFlag(cmd, "simulate.frequency", "frequency")
	bindFlag(cmd, "simulate.case_effect", "case-effect")
	bindFlag(cmd, "simulate.bandwidth", "bandwidth")
	bindFlag(cmd, "simulate.seed", "seed")
	bindFlag(cmd, "simulate.replicates", "replicates")
	bindFlag(cmd, "simulate.significance", "significance")
	bindFlag(cmd, "simulate.workers", "workers")
	bindFlag(cmd, "simulate.alpha", "alpha")
	bindFlag(cmd, "simulate.rho", "rho")

	return cmd
}

func writeSimulation(res *simulate.Result, gene, outDir string, withPower bool, logger *zap.Logger) error {
	if len(res.Structures) == 0 {
		logger.Warn("nothing simulated", zap.String("gene", gene), zap.Stringer("status", res.Status))
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var pw *output.PowerWriter
	if withPower {
		pw = output.NewPowerWriter(os.Stdout)
		if err := pw.WriteHeader(); err != nil {
			return err
		}
	}

	for _, sr := range res.Structures {
		prefix := filepath.Join(outDir, gene+"_"+sr.Structure)

		if err := writeFile(prefix+".pheno", func(f *os.File) error {
			return output.WritePhenotypes(f, sr.Individuals, sr.Phenotype)
		}); err != nil {
			return err
		}

		residues := make([]output.Residue, len(sr.Residues))
		for i, r := range sr.Residues {
			residues[i] = output.Residue{Chain: r.Chain, Position: r.StructurePosition, Effect: r.Effect}
		}
		if err := writeFile(prefix+".pml", func(f *os.File) error {
			return output.NewPyMOLWriter(f).Write(sr.Structure, residues)
		}); err != nil {
			return err
		}
		logger.Info("wrote simulation", zap.String("structure", sr.Structure), zap.String("prefix", prefix))

		if pw != nil && sr.Power != nil {
			if err := pw.Write(output.PowerRow{
				Gene:        gene,
				Structure:   sr.Structure,
				Replicates:  sr.Power.Replicates,
				Significant: sr.Power.Significant,
				Degenerate:  sr.Power.Degenerate,
				Power:       sr.Power.Power,
				MeanP:       sr.Power.MeanP,
				MedianP:     sr.Power.MedianP,
			}); err != nil {
				return err
			}
		}
	}

	if pw != nil {
		return pw.Flush()
	}
	return nil
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
