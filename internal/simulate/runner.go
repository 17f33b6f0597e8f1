// Package simulate streams a plausible bout at a running service: cameras
// and a human judge observing the same actions, retransmissions, control
// segments, then a score fetch, chain verification and an optional lock per
// round. It exists to exercise the whole ingestion path end to end.
package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ringsidehq/roundledger/pkg/logger"
)

const percentMultiplier = 100

// Run executes the complete bout simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting bout simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("bout_id", config.BoutID),
		logger.Int("rounds", config.Rounds),
		logger.Int("actions", config.Actions),
		logger.Int("workers", config.Workers),
		logger.Any("lock", config.Lock),
	)

	client := newHTTPClient(config.Timeout)

	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	red := config.BoutID + "-red"
	blue := config.BoutID + "-blue"

	var all []Submission
	for n := 1; n <= config.Rounds; n++ {
		roundID := "r" + strconv.Itoa(n)

		if err := registerRound(ctx, client, config, roundID, n, red, blue); err != nil {
			return fmt.Errorf("round registration failed: %w", err)
		}
		stats.RoundsRegistered++

		subs := generateRound(ctx, config, roundID, red, blue)
		stats.Generated += len(subs)
		all = append(all, subs...)

		if err := submitAll(ctx, client, config, subs, stats); err != nil {
			return fmt.Errorf("submission failed: %w", err)
		}

		if err := inspectRound(ctx, client, config, roundID, stats); err != nil {
			return fmt.Errorf("round inspection failed: %w", err)
		}
	}

	if config.OutputFile != "" {
		if err := saveSubmissions(ctx, config.OutputFile, all); err != nil {
			logger.Get().Warn(ctx, "failed to save submissions", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// registerRound creates the round before any detection is streamed at it.
func registerRound(ctx context.Context, client *HTTPClient, config *Config, roundID string, number int, red, blue string) error {
	resp, err := client.Post(ctx, config.BaseURL+"/v1/rounds", map[string]interface{}{
		"bout_id":         config.BoutID,
		"round_id":        roundID,
		"round_number":    number,
		"red_fighter_id":  red,
		"blue_fighter_id": blue,
	})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("register returned status %d", resp.StatusCode)
	}
	return nil
}

// submitAll streams submissions through a bounded worker set.
func submitAll(ctx context.Context, client *HTTPClient, config *Config, subs []Submission, stats *Stats) error {
	var accepted, duplicate, failed atomic.Int64

	jobs := make(chan Submission)
	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				switch submitOne(ctx, client, config, s) {
				case http.StatusCreated:
					accepted.Add(1)
				case http.StatusOK:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	for _, s := range subs {
		select {
		case jobs <- s:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	stats.Submitted += len(subs)
	stats.Accepted += int(accepted.Load())
	stats.Duplicates += int(duplicate.Load())
	stats.Failed += int(failed.Load())
	return nil
}

// submitOne posts one detection and reports the response status, or 0 on a
// transport failure.
func submitOne(ctx context.Context, client *HTTPClient, config *Config, s Submission) int {
	resp, err := client.Post(ctx, config.BaseURL+"/v1/events", s)
	if err != nil {
		if config.Verbose {
			logger.Get().Warn(ctx, "submit failed", logger.Error(err))
		}
		return 0
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode
}

// inspectRound fetches the live score, verifies the chain and optionally
// locks the round.
func inspectRound(ctx context.Context, client *HTTPClient, config *Config, roundID string, stats *Stats) error {
	base := config.BaseURL + "/v1/rounds/" + config.BoutID + "/" + roundID

	resp, err := client.Get(ctx, base+"/score")
	if err != nil {
		return err
	}
	var score map[string]interface{}
	if err := decodeInto(resp, &score); err != nil {
		return err
	}
	logger.Get().Info(ctx, "round scored",
		logger.String("round_id", roundID),
		logger.Any("card", score["card"]),
		logger.Any("winner", score["winner"]),
	)

	resp, err = client.Get(ctx, base+"/chain")
	if err != nil {
		return err
	}
	var chain struct {
		Valid bool `json:"valid"`
	}
	if err := decodeInto(resp, &chain); err != nil {
		return err
	}
	if chain.Valid {
		stats.ChainsValid++
	} else {
		logger.Get().Warn(ctx, "chain verification failed", logger.String("round_id", roundID))
	}

	if !config.Lock {
		return nil
	}
	resp, err = client.Post(ctx, base+"/lock", struct{}{})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lock returned status %d", resp.StatusCode)
	}
	stats.RoundsLocked++
	return nil
}

// saveSubmissions writes the generated submissions to a JSON file.
func saveSubmissions(ctx context.Context, filename string, subs []Submission) error {
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "submissions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted+stats.Duplicates) / float64(stats.Submitted) * percentMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("roundsRegistered", stats.RoundsRegistered),
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("roundsLocked", stats.RoundsLocked),
		logger.Int("chainsValid", stats.ChainsValid),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
