package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
	"github.com/Couziii/Test-Charity-Event-Manager/internal/domain/events"
)

// seedEvent is one entry of a seed file. Dates may be written loosely and are
// normalized before writing.
type seedEvent struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	CompanyName      string `yaml:"company_name"`
	Date             string `yaml:"date"`
	Address          string `yaml:"address"`
	ShortDescription string `yaml:"short_description"`
	Description      string `yaml:"description"`
}

type seedFile struct {
	Events []seedEvent `yaml:"events"`
}

func newSeedCommand(flags *globalFlags) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision events from a YAML file",
		Long: `Write the events listed in a YAML file to the catalog. Existing events with
the same id are replaced and start with an empty roster.

File format:
  events:
    - id: "1"
      name: Beach cleanup
      company_name: Acme
      date: 12 March 2026
      address: 1 Shore Road
      short_description: Pick up litter
      description: <p>Gloves provided.</p>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			list, err := parseSeed(data)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), flags, func(ctx context.Context, store docstore.Store, logger zerolog.Logger) error {
				catalog := events.NewCatalog(store)
				for _, e := range list {
					if err := catalog.Provision(ctx, e); err != nil {
						return err
					}
					logger.Info().Str("event_id", e.ID).Str("date", e.Date).Msg("event provisioned")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "provisioned %d events\n", len(list))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file listing events")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// parseSeed decodes a seed file and normalizes its dates.
func parseSeed(data []byte) ([]events.Event, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	out := make([]events.Event, 0, len(f.Events))
	seen := make(map[string]bool, len(f.Events))
	for i, s := range f.Events {
		if !docstore.ValidKey(s.ID) {
			return nil, fmt.Errorf("event %d: invalid id %q", i, s.ID)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("event %d: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		date, err := events.NormalizeDate(s.Date)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", s.ID, err)
		}
		out = append(out, events.Event{
			ID:               s.ID,
			Name:             s.Name,
			CompanyName:      s.CompanyName,
			Date:             date,
			Address:          s.Address,
			ShortDescription: s.ShortDescription,
			Description:      s.Description,
			EnrolledUsers:    []string{},
		})
	}
	return out, nil
}
