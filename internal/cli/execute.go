package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var execLang string

var executeCmd = &cobra.Command{
	Use:   "execute [code]",
	Short: "Submit code to a running codebox server and print its output",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runExecute(args[0])
	},
}

func init() {
	executeCmd.Flags().StringVarP(&execLang, "lang", "l", "c", "submission language")
	RootCmd.AddCommand(executeCmd)
}

func runExecute(code string) {
	payload, _ := json.Marshal(map[string]string{"code": code, "lang": execLang})

	resp, err := http.Post(apiURL+"/execute", "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Printf("Failed to connect: %v\nIs the server running?\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed: %s\n", resp.Status)
		io.Copy(os.Stderr, resp.Body)
		os.Exit(1)
	}

	var result struct {
		Output *struct {
			Stdout string `json:"stdout"`
			Stderr string `json:"stderr"`
		} `json:"output"`
		CompileError *struct {
			Error string `json:"error"`
		} `json:"compile_error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Bad response: %v\n", err)
		os.Exit(1)
	}

	switch {
	case result.CompileError != nil:
		fmt.Fprint(os.Stderr, result.CompileError.Error)
		os.Exit(1)
	case result.Output != nil:
		fmt.Print(result.Output.Stdout)
		if result.Output.Stderr != "" {
			fmt.Fprint(os.Stderr, result.Output.Stderr)
		}
	}
}
