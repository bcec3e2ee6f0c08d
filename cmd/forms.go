package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amtly/amtly/internal/forms"
)

var formsCmd = &cobra.Command{
	Use:   "forms [code] [field]",
	Short: "Browse the Jobcenter form catalog",
	Long: `Without arguments lists the supported forms. With a form code prints
its summary and completion checklist; with a code and field number prints
that field's guidance.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runForms,
}

func init() {
	formsCmd.Flags().String("check-iban", "", "check the shape of a German IBAN")
	formsCmd.Flags().String("check-date", "", "check a DD.MM.YYYY date")
	rootCmd.AddCommand(formsCmd)
}

func runForms(cmd *cobra.Command, args []string) error {
	if iban, _ := cmd.Flags().GetString("check-iban"); iban != "" {
		printCheck("IBAN", iban, forms.ValidateIBAN(iban), "expected DE followed by 20 digits")
		return nil
	}
	if date, _ := cmd.Flags().GetString("check-date"); date != "" {
		printCheck("Date", date, forms.ValidateDate(date), "expected DD.MM.YYYY")
		return nil
	}

	catalog, err := forms.Load()
	if err != nil {
		return fmt.Errorf("loading form catalog: %w", err)
	}

	switch len(args) {
	case 0:
		for _, f := range catalog.Forms() {
			fmt.Printf("%-4s %s (%d pages)\n", f.Code, f.Name, f.TotalPages)
		}
		return nil
	case 1:
		summary, err := catalog.Summary(args[0])
		if err != nil {
			return fmt.Errorf("%w. Known forms: %s", err, strings.Join(catalog.Codes(), ", "))
		}
		fmt.Println(summary)
		items, err := catalog.CompletionChecklist(args[0])
		if err != nil {
			return err
		}
		fmt.Println("\nChecklist:")
		for _, it := range items {
			fmt.Printf("  [ ] %s %s (%d/%d required)\n", it.Section, it.Name, it.RequiredFields, it.TotalFields)
		}
		return nil
	default:
		f, sec, err := catalog.Field(args[0], args[1])
		if err != nil {
			return err
		}
		code := strings.ToUpper(args[0])
		fmt.Printf("%s field %s: %s\n", code, f.ID, f.Label)
		fmt.Printf("Section %s: %s\n", sec.Code, sec.Name)
		fmt.Printf("Required: %s\n", f.Required)
		if f.Description != "" {
			fmt.Printf("\n%s\n", f.Description)
		}
		if f.Example != "" {
			fmt.Printf("Example: %s\n", f.Example)
		}
		for _, tip := range f.Tips {
			fmt.Printf("  - %s\n", tip)
		}
		for _, t := range catalog.Triggers(code, f.ID) {
			fmt.Printf("If you answer %q you also need: %s\n", t.Answer, strings.Join(t.Requires, ", "))
		}
		return nil
	}
}

func printCheck(what, value string, ok bool, hint string) {
	if ok {
		fmt.Printf("%s %q looks valid\n", what, value)
		return
	}
	fmt.Printf("%s %q is invalid: %s\n", what, value, hint)
}
