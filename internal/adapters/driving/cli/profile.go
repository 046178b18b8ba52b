package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	profileWithPIN bool
	profileJSON    bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage profiles",
	Long: `Profiles scope every answer. The HTTP API identifies a caller by profile id;
the command line uses --profile or the configured default profile.`,
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a profile",
	Long: `Create a profile. With --pin you are asked for a 4 to 8 digit PIN, which
HTTP callers must present to look the profile up by name.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileCreate,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfileList,
}

var profileLookupCmd = &cobra.Command{
	Use:   "lookup <name>",
	Short: "Resolve a profile by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileLookup,
}

func init() {
	profileCreateCmd.Flags().BoolVar(&profileWithPIN, "pin", false, "protect the profile with a PIN (prompted)")
	profileLookupCmd.Flags().BoolVar(&profileWithPIN, "pin", false, "prompt for the profile PIN")
	profileListCmd.Flags().BoolVar(&profileJSON, "json", false, "output profiles as JSON")

	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileLookupCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	if profileService == nil {
		return errors.New("profile service not configured")
	}

	var pin string
	if profileWithPIN {
		var err error
		if pin, err = readPIN(cmd, "PIN: "); err != nil {
			return err
		}
	}

	profile, err := profileService.Register(commandContext(cmd), args[0], pin)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	cmd.Printf("Created profile %q (id %d)\n", profile.Name, profile.ID)
	return nil
}

func runProfileList(cmd *cobra.Command, _ []string) error {
	if profileService == nil {
		return errors.New("profile service not configured")
	}

	profiles, err := profileService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if profileJSON {
		data, err := json.MarshalIndent(profiles, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal profiles: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(profiles) == 0 {
		cmd.Println("No profiles.")
		return nil
	}
	for i := range profiles {
		lock := ""
		if profiles[i].HasPIN() {
			lock = " (PIN)"
		}
		cmd.Printf("  %d  %s%s\n", profiles[i].ID, profiles[i].Name, lock)
	}
	return nil
}

func runProfileLookup(cmd *cobra.Command, args []string) error {
	if profileService == nil {
		return errors.New("profile service not configured")
	}

	var pin string
	if profileWithPIN {
		var err error
		if pin, err = readPIN(cmd, "PIN: "); err != nil {
			return err
		}
	}

	profile, err := profileService.Lookup(commandContext(cmd), args[0], pin)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	cmd.Printf("%s: id %d\n", profile.Name, profile.ID)
	return nil
}

// readPIN reads a PIN without echo when stdin is a terminal, and a plain
// line from the command input otherwise.
func readPIN(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("reading PIN: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading PIN: %w", err)
	}
	return strings.TrimSpace(line), nil
}
