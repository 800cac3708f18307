package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexio/readerd/internal/config"
	"github.com/lexio/readerd/internal/device"
)

// --- prefs ---

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or update reading preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current preferences as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/v1/preferences")
		if err != nil {
			return err
		}

		var current any
		if err := decodeJSON(resp, &current); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(current)
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update a preference (bionicReading true|false, bodyFont <font>)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/v1/preferences", map[string]string{key: value})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsSetCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent preference changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/v1/preferences/history?limit=%d", limit))
		if err != nil {
			return err
		}

		var events []struct {
			Key       string `json:"key"`
			FromValue string `json:"from_value"`
			ToValue   string `json:"to_value"`
			Origin    string `json:"origin"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &events); err != nil {
			return err
		}

		if len(events) == 0 {
			fmt.Println("no preference changes recorded")
			return nil
		}
		for _, ev := range events {
			fmt.Printf("%s  %-8s %s: %q -> %q\n", ev.CreatedAt, ev.Origin, ev.Key, ev.FromValue, ev.ToValue)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of events")
}

// --- device ---

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Classify a user-agent string as ios, android, or desktop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ua, _ := cmd.Flags().GetString("ua")
		touch, _ := cmd.Flags().GetInt("touch-points")

		platform := device.Classify(device.Probe{UserAgent: ua, TouchPoints: touch})
		fmt.Println(platform)
		return nil
	},
}

func init() {
	deviceCmd.Flags().String("ua", "", "user-agent string (empty classifies as desktop)")
	deviceCmd.Flags().Int("touch-points", 0, "reported maxTouchPoints capability")
}

// --- sync ---

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh preferences from the account service (cooldown-gated)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/v1/sync", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Preferences synced")
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
