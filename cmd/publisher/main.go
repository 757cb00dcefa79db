package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// publisher is a retry-storm simulator: it submits events to the aggregator
// and resubmits previously sent event ids at a configurable ratio, the way
// an aggressive client retry policy would.

var topics = []string{"user-activity", "payment-log", "system-alert", "auth-trace"}

var (
	targetURL      string
	totalEvents    int
	duplicateRatio float64
	concurrency    int
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:   "publisher",
		Short: "Load generator that floods the aggregator with duplicate-heavy traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	rootCmd.Flags().StringVar(&targetURL, "target", "http://localhost:8080", "aggregator base URL")
	rootCmd.Flags().IntVar(&totalEvents, "total", 25000, "number of submissions to send")
	rootCmd.Flags().Float64Var(&duplicateRatio, "duplicate-ratio", 0.3, "probability a submission reuses a previously sent event id")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 8, "number of concurrent senders")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type sentWindow struct {
	mu  sync.Mutex
	ids []string
	max int
}

func (w *sentWindow) add(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ids = append(w.ids, id)
	if len(w.ids) > w.max {
		w.ids = w.ids[len(w.ids)-w.max:]
	}
}

func (w *sentWindow) random() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.ids) == 0 {
		return "", false
	}
	return w.ids[rand.Intn(len(w.ids))], true
}

func run() error {
	client := &http.Client{Timeout: 5 * time.Second}

	if err := waitForService(client); err != nil {
		return err
	}

	slog.Info("starting simulation", "total", totalEvents, "duplicate_ratio", duplicateRatio, "concurrency", concurrency)

	window := &sentWindow{max: 10000}
	jobs := make(chan int)
	var sent, duplicates, failures atomic.Int64
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				eventID := ""
				if old, ok := window.random(); ok && rand.Float64() < duplicateRatio {
					eventID = old
					duplicates.Add(1)
				} else {
					eventID = uuid.New().String()
					window.add(eventID)
				}

				if err := send(client, eventID); err != nil {
					failures.Add(1)
					slog.Error("failed to send event", "error", err)
					continue
				}

				if n := sent.Add(1); n%1000 == 0 {
					elapsed := time.Since(start).Seconds()
					slog.Info("progress", "sent", n, "total", totalEvents,
						"rate", fmt.Sprintf("%.2f req/s", float64(n)/elapsed))
				}
			}
		}()
	}

	for i := 0; i < totalEvents; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	slog.Info("simulation finished",
		"sent", sent.Load(),
		"intended_duplicates", duplicates.Load(),
		"failures", failures.Load(),
		"elapsed", elapsed.String(),
		"rate", fmt.Sprintf("%.2f req/s", float64(sent.Load())/elapsed.Seconds()))
	return nil
}

func send(client *http.Client, eventID string) error {
	body, err := json.Marshal(map[string]any{
		"topic":     topics[rand.Intn(len(topics))],
		"event_id":  eventID,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"source":    "publisher-simulator",
		"payload": map[string]any{
			"action": []string{"click", "view", "purchase", "error"}[rand.Intn(4)],
			"value":  rand.Intn(100) + 1,
			"meta":   "random-data-string",
		},
	})
	if err != nil {
		return err
	}

	resp, err := client.Post(targetURL+"/publish", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func waitForService(client *http.Client) error {
	slog.Info("waiting for aggregator", "target", targetURL)
	for i := 0; i < 60; i++ {
		resp, err := client.Get(targetURL + "/stats")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("aggregator is up")
				return nil
			}
		}
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("aggregator did not become ready at %s", targetURL)
}
