package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check a running server",
	Long: `Check the status of a running serve instance: what input it analysed,
when, and how many swaps, victims and triples it found.`,
	RunE: runStatus,
}

var jsonOutput bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "output in JSON format")
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := getServerStatus()
	if err != nil {
		return fmt.Errorf("failed to get server status: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	}
	outputFormatted(out, status)
	return nil
}

func statusURL() string {
	host := viper.GetString("server.host")
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	port := viper.GetInt("server.port")
	if port == 0 {
		port = 8080
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/api/v1/status"
}

func getServerStatus() (*interfaces.StatusResponse, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(statusURL())
	if err != nil {
		// server might not be running
		return &interfaces.StatusResponse{Status: "offline"}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var status interfaces.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &status, nil
}

func outputFormatted(w io.Writer, status *interfaces.StatusResponse) {
	fmt.Fprintf(w, "ton-mev server status\n")
	fmt.Fprintf(w, "=====================\n\n")
	fmt.Fprintf(w, "Status:      %s\n", status.Status)
	if status.Status == "offline" {
		return
	}

	fmt.Fprintf(w, "Version:     %s\n", status.Version)
	fmt.Fprintf(w, "Input:       %s\n", status.Input)
	if !status.AnalyzedAt.IsZero() {
		fmt.Fprintf(w, "Analyzed at: %s\n", status.AnalyzedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Swaps:       %d\n", status.Swaps)
	fmt.Fprintf(w, "Victims:     %d\n", status.Victims)
	fmt.Fprintf(w, "Triples:     %d\n", status.Triples)
}
