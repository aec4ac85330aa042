package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Small operator utility: queries the status endpoint and prints a summary.

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of the cat feeder service")
	flag.Parse()

	fmt.Println("cat-feeder health check")
	fmt.Println("-----------------------")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/api/status")
	if err != nil {
		log.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("unexpected status code %d", resp.StatusCode)
	}

	var status struct {
		SleepMode        bool      `json:"sleep_mode"`
		NextTransition   time.Time `json:"next_transition"`
		SecondsUntilWake float64   `json:"seconds_until_wake"`
		Override         string    `json:"override"`
		QueueDepth       int       `json:"queue_depth"`
		QueueActive      bool      `json:"queue_active"`
		ActuatorState    string    `json:"actuator_state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		log.Fatalf("failed to decode status: %v", err)
	}

	fmt.Printf("sleep mode:      %v (override: %s)\n", status.SleepMode, status.Override)
	if status.SleepMode && !status.NextTransition.IsZero() {
		fmt.Printf("wakes in:        %.0fs (%s)\n", status.SecondsUntilWake, status.NextTransition.Format(time.RFC3339))
	}
	fmt.Printf("queue depth:     %d (active: %v)\n", status.QueueDepth, status.QueueActive)
	fmt.Printf("actuator link:   %s\n", status.ActuatorState)

	if status.ActuatorState != "ready" && status.ActuatorState != "busy" {
		fmt.Println("service is DEGRADED: actuator offline, alerts remain visual-only")
		return
	}
	fmt.Println("service is healthy!")
}
