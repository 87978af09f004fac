package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the language variants a codebox server accepts",
	Run: func(cmd *cobra.Command, args []string) {
		runLanguages()
	},
}

func init() {
	RootCmd.AddCommand(languagesCmd)
}

func runLanguages() {
	resp, err := http.Get(apiURL + "/languages")
	if err != nil {
		fmt.Printf("Error connecting to server: %v\nIs the server running?\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Server returned error: %s\n", resp.Status)
		os.Exit(1)
	}

	var result struct {
		Languages []string `json:"languages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Error parsing response: %v\n", err)
		os.Exit(1)
	}

	for _, lang := range result.Languages {
		fmt.Println(lang)
	}
}
