package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"stockdesk/internal/resources"
)

// Write-specific flags
var (
	createFile string
	updateFile string
	updateSet  map[string]string
)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create <kind> -f <file>",
	Short: "Create a record from a YAML or JSON file",
	Long: `Create a record in a collection. The file holds the record's fields as
YAML or JSON; use "-" to read from stdin.

Examples:
  stockdesk create products -f bolt.yaml
  echo '{"name": "North", "location": "Oslo"}' | stockdesk create wh -f -`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update <kind> <id>",
	Short: "Change fields of a record",
	Long: `Patch the given fields of a record. Fields come from a YAML or JSON file,
from --set, or both; --set wins.

Examples:
  stockdesk update products 12 --set stock=40
  stockdesk update companies 3 -f company.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <kind> <id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(2),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)

	createCmd.Flags().StringVarP(&createFile, "filename", "f", "", "YAML or JSON file with the record, - for stdin")
	_ = createCmd.MarkFlagRequired("filename")
	updateCmd.Flags().StringVarP(&updateFile, "filename", "f", "", "YAML or JSON file with the fields, - for stdin")
	updateCmd.Flags().StringToStringVar(&updateSet, "set", nil, "Field values as key=value")
}

func runCreate(cmd *cobra.Command, args []string) error {
	kind, err := resources.LookupKind(args[0])
	if err != nil {
		return err
	}
	fields, err := readFields(cmd, createFile)
	if err != nil {
		return err
	}

	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	printer, err := newPrinter(cmd, application)
	if err != nil {
		return err
	}
	collection := resources.NewCollection[resources.Record](application.Services().Client, kind.Path)
	record, err := collection.Create(cmd.Context(), fields)
	if err != nil {
		return commandError(application, err)
	}
	return printer.PrintRecord(*record)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	kind, err := resources.LookupKind(args[0])
	if err != nil {
		return err
	}

	fields := resources.Record{}
	if updateFile != "" {
		if fields, err = readFields(cmd, updateFile); err != nil {
			return err
		}
	}
	for key, value := range updateSet {
		fields[key] = parseValue(value)
	}
	if len(fields) == 0 {
		return fmt.Errorf("nothing to update: pass --set key=value or -f <file>")
	}

	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	printer, err := newPrinter(cmd, application)
	if err != nil {
		return err
	}
	collection := resources.NewCollection[resources.Record](application.Services().Client, kind.Path)
	record, err := collection.Update(cmd.Context(), resources.ID(args[1]), fields)
	if err != nil {
		return commandError(application, err)
	}
	return printer.PrintRecord(*record)
}

func runDelete(cmd *cobra.Command, args []string) error {
	kind, err := resources.LookupKind(args[0])
	if err != nil {
		return err
	}

	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	collection := resources.NewCollection[resources.Record](application.Services().Client, kind.Path)
	if err := collection.Delete(cmd.Context(), resources.ID(args[1])); err != nil {
		return commandError(application, err)
	}
	authPrintf(cmd, "Deleted %s %s\n", kind.Name, args[1])
	return nil
}

// readFields reads a YAML or JSON object from path, or stdin for "-".
func readFields(cmd *cobra.Command, path string) (resources.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var fields resources.Record
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s holds no fields", path)
	}
	return fields, nil
}

// parseValue turns a --set value into a JSON scalar when it looks like one.
func parseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		switch v.(type) {
		case bool, nil, float64:
			return v
		}
	}
	return s
}
