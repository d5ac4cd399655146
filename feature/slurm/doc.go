// Package slurm connects the agent to the Slurm workload manager: it reads
// the job context prolog and epilog scripts run in and lists active jobs
// through squeue for orphan cleanup.
package slurm
