package cmd

import (
	"fmt"
	"time"

	"license-agent/core/config"
	"license-agent/core/logger"
	"license-agent/feature/bookings"
	"license-agent/feature/slurm"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var hookTimeout time.Duration

var prologCmd = &cobra.Command{
	Use:   "prolog",
	Short: "Book licenses for a starting Slurm job",
	Long: `Meant to run as Slurm PrologSlurmctld. Reads the job from the SLURM_*
environment and books its licenses through the local agent API. The lead
host is the first node of SLURM_JOB_NODELIST unless SLURMD_NODENAME is set.`,
	RunE: runProlog,
}

var epilogCmd = &cobra.Command{
	Use:   "epilog",
	Short: "Release the licenses of a finished Slurm job",
	Long:  `Meant to run as Slurm EpilogSlurmctld. Releases every booking of the job.`,
	RunE:  runEpilog,
}

func init() {
	for _, c := range []*cobra.Command{prologCmd, epilogCmd} {
		c.Flags().DurationVar(&hookTimeout, "timeout", 10*time.Second, "Timeout for the call to the local agent")
		RootCmd.AddCommand(c)
	}
}

// hookContext reads the job from the environment. Missing variables are a
// configuration error of this hook only.
func hookContext() (slurm.JobContext, *config.Config, *zap.Logger, error) {
	cfg, l, err := loadConfig(false)
	if err != nil {
		return slurm.JobContext{}, nil, nil, err
	}
	jc, missing, err := slurm.LookupEnv(nil)
	if len(missing) > 0 {
		return jc, nil, nil, &config.MissingError{Keys: missing}
	}
	if err != nil {
		return jc, nil, nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	return jc, cfg, logger.WithJob(l, jc.JobID), nil
}

func runProlog(cmd *cobra.Command, args []string) error {
	jc, cfg, l, err := hookContext()
	if err != nil {
		return err
	}
	defer l.Sync()

	if len(jc.Licenses) == 0 {
		l.Debug("Job requests no licenses")
		return nil
	}

	client := bookings.NewClient(cfg.Server.URL(), cfg.Server.ApiKey, hookTimeout)
	result, err := client.Book(bookings.BookRequest{
		JobID:    jc.JobID,
		User:     jc.User,
		LeadHost: jc.LeadHost,
		Licenses: jc.Licenses,
	})
	if err != nil {
		return fmt.Errorf("book licenses for job %s: %w", jc.JobID, err)
	}

	if result.Job == nil {
		l.Info("No tracked licenses to book", zap.Strings("ignored", result.Ignored))
		return nil
	}
	l.Info("Licenses booked",
		zap.Int("bookings", len(result.Job.Bookings)),
		zap.Strings("ignored", result.Ignored),
	)
	return nil
}

func runEpilog(cmd *cobra.Command, args []string) error {
	jc, cfg, l, err := hookContext()
	if err != nil {
		return err
	}
	defer l.Sync()

	if len(jc.Licenses) == 0 {
		l.Debug("Job requests no licenses")
		return nil
	}

	client := bookings.NewClient(cfg.Server.URL(), cfg.Server.ApiKey, hookTimeout)
	result, err := client.Release(jc.JobID)
	if err != nil {
		return fmt.Errorf("release licenses for job %s: %w", jc.JobID, err)
	}
	l.Info("Licenses released", zap.Int("bookings", result.Released))
	return nil
}
