package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	md2doc "github.com/alnah/go-md2doc"
)

// Sentinel errors for batch operations.
var (
	ErrNoInput       = errors.New("no input specified")
	ErrReadMarkdown  = errors.New("failed to read markdown file")
	ErrConverterInit = errors.New("failed to initialize converter")
)

// conversionJob is one source rendered in one format.
type conversionJob struct {
	File   FileToConvert
	Format md2doc.Format
}

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	InputPath  string
	Format     md2doc.Format
	OutputPath string
	Err        error
	Duration   time.Duration
}

// buildJobs crosses files with formats, file-major.
func buildJobs(files []FileToConvert, formats []md2doc.Format) []conversionJob {
	jobs := make([]conversionJob, 0, len(files)*len(formats))
	for _, f := range files {
		for _, format := range formats {
			jobs = append(jobs, conversionJob{File: f, Format: format})
		}
	}
	return jobs
}

// convertBatch processes jobs concurrently using the converter pool.
// Results keep the order of jobs.
func convertBatch(ctx context.Context, pool Pool, jobs []conversionJob) []ConversionResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(jobs))

	results := make([]ConversionResult, len(jobs))
	var wg sync.WaitGroup
	queue := make(chan int, len(jobs))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conv, err := pool.Acquire(ctx)
			if err != nil {
				// No converter for this worker, fail what it would have taken.
				for idx := range queue {
					results[idx] = failedResult(jobs[idx], fmt.Errorf("%w: %w", ErrConverterInit, err))
				}
				return
			}
			defer pool.Release(conv)

			for idx := range queue {
				if ctx.Err() != nil {
					results[idx] = failedResult(jobs[idx], ctx.Err())
					continue
				}
				results[idx] = convertJob(ctx, conv, jobs[idx])
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

func failedResult(job conversionJob, err error) ConversionResult {
	return ConversionResult{InputPath: job.File.InputPath, Format: job.Format, Err: err}
}

// convertJob converts one job and saves it into the job's output directory.
func convertJob(ctx context.Context, conv Converter, job conversionJob) ConversionResult {
	start := time.Now()
	result := ConversionResult{InputPath: job.File.InputPath, Format: job.Format}

	content := job.File.Content
	if content == nil {
		data, err := os.ReadFile(job.File.InputPath) // #nosec G304 -- discovered path
		if err != nil {
			result.Err = fmt.Errorf("%w: %w", ErrReadMarkdown, err)
			result.Duration = time.Since(start)
			return result
		}
		content = data
	}

	path, err := conv.Download(ctx, md2doc.Request{
		Content: string(content),
		Format:  job.Format,
		Name:    job.File.Name,
		BaseDir: job.File.BaseDir,
	}, md2doc.DirSink{Dir: job.File.OutputDir})

	result.OutputPath = path
	result.Err = err
	result.Duration = time.Since(start)
	return result
}

// ResultSummary holds the count of succeeded and failed conversions.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed conversions.
func countResults(results []ConversionResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults outputs conversion results and returns the first failure.
func printResults(results []ConversionResult, flags commonFlags, env *Environment) (ResultSummary, error) {
	summary := countResults(results)
	var firstErr error

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s (%s): %v\n", r.InputPath, r.Format, r.Err)
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}

		if flags.quiet {
			continue
		}

		if flags.verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%v)\n", r.InputPath, r.OutputPath, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !flags.quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}

	return summary, firstErr
}
