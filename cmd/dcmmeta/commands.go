package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-dcmmeta/internal/dicomseed"
	"github.com/goliatone/go-dcmmeta/pkg/artifact"
	"github.com/goliatone/go-dcmmeta/pkg/assemble"
	"github.com/goliatone/go-dcmmeta/pkg/cascade"
	"github.com/goliatone/go-dcmmeta/pkg/catalog"
	"github.com/goliatone/go-dcmmeta/pkg/prompt"
	"github.com/goliatone/go-dcmmeta/pkg/sources"
	"github.com/goliatone/go-dcmmeta/pkg/wizard"
)

// Selectors of the parametric map flow that have no cascade slot.
const (
	quantitySelector   = "Quantity"
	methodSelector     = "MeasurementMethod"
	derivationSelector = "Derivation"
)

var errInvalidDocument = errors.New("document failed validation")

func resolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <schema>",
		Short: "Fetch a schema and every schema it references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			closure, err := a.wb.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, doc := range closure {
				fmt.Fprintln(a.out, doc.Location())
			}
			return nil
		},
	}
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema> <file|->",
		Short: "Validate a JSON document against a schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.wb.LoadSchema(cmd.Context(), args[0]); err != nil {
				return err
			}
			raw, err := a.readInput(args[1])
			if err != nil {
				return err
			}
			outcome := a.wb.Validate(raw)
			return a.report(outcome.Valid, outcome.Messages())
		},
	}
}

func codesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "codes <vocabulary> [query]",
		Short: "Search a vocabulary",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.wb.LoadVocabulary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var query string
			if len(args) == 2 {
				query = args[1]
			}
			entries, err := c.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", entry.DisplayLabel, entry.Payload.CodeValue, entry.Payload.CodingSchemeDesignator)
			}
			return w.Flush()
		},
	}
}

func sourcesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the schemas and vocabularies on offer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest := a.wb.Manifest()
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCHEMA\tID\tURL")
			for _, desc := range manifest.Schemas {
				fmt.Fprintf(w, "%s\t%s\t%s\n", desc.Name, desc.CanonicalID(), desc.URL)
			}
			fmt.Fprintln(w, "\nVOCABULARY\tSELECTOR\tURL")
			for _, vocab := range manifest.Vocabularies {
				fmt.Fprintf(w, "%s\t%s\t%s\n", vocab.Name, vocab.Selector, vocab.URL)
			}
			return w.Flush()
		},
	}
}

func createCmd(a *app) *cobra.Command {
	var (
		fromDICOM  string
		identifier string
		schemaName string
		printOnly  bool
	)
	cmd := &cobra.Command{
		Use:       "create seg|pmap",
		Short:     "Fill out a meta information document interactively",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"seg", "pmap"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if schemaName == "" {
				schemaName = args[0]
			}
			if err := a.wb.LoadSchema(ctx, schemaName); err != nil {
				a.notify(ctx, "schema load failed, the document will not be validated: "+err.Error())
			}

			var seed dicomseed.Seed
			if fromDICOM != "" {
				var err error
				if seed, err = dicomseed.ReadFile(fromDICOM); err != nil {
					a.notify(ctx, "could not read "+fromDICOM+": "+err.Error())
				}
			}

			var (
				document any
				err      error
			)
			switch args[0] {
			case "seg":
				document, err = a.createSegmentation(ctx, seed, schemaName)
			case "pmap":
				document, err = a.createParametricMap(ctx, seed)
			}
			if err != nil {
				return err
			}
			return a.finish(ctx, identifier, document, printOnly)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&fromDICOM, "from-dicom", "", "DICOM file to pre-populate series attributes from")
	flags.StringVar(&identifier, "id", artifact.DefaultIdentifier, "output file name without extension")
	flags.StringVar(&schemaName, "schema", "", "schema to validate against (defaults to the document kind)")
	flags.BoolVar(&printOnly, "print", false, "print the document instead of writing a file")
	return cmd
}

func (a *app) createSegmentation(ctx context.Context, seed dicomseed.Seed, schemaName string) (any, error) {
	keys, err := a.wb.KeySet(schemaName)
	if err != nil {
		return nil, err
	}
	f := a.wb.NewForm()
	if len(seed) > 0 {
		f.SetSeries(seed.Apply(f.Series()))
	}
	for _, slot := range []cascade.Slot{cascade.AnatomicRegion, cascade.SegmentedPropertyCategory} {
		name, err := a.chooseVocabulary(ctx, string(slot))
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		if err := a.wb.InstallVocabulary(ctx, f, name); err != nil {
			a.notify(ctx, "vocabulary load failed: "+err.Error())
		}
	}

	w := wizard.New(a.driver, wizard.WithLogger(a.logger))
	if err := w.Segmentation(ctx, f); err != nil {
		return nil, err
	}
	return assemble.Segmentation(f.Series(), f.Segments(), assemble.WithKeys(keys)), nil
}

func (a *app) createParametricMap(ctx context.Context, seed dicomseed.Seed) (any, error) {
	attrs := assemble.DefaultParametricMapAttributes()
	if part := seed["BodyPartExamined"]; part != "" {
		attrs.BodyPartExamined = part
	}

	var catalogs wizard.ParametricMapCatalogs
	targets := []struct {
		selector string
		catalog  **catalog.Catalog
	}{
		{quantitySelector, &catalogs.Quantities},
		{methodSelector, &catalogs.Methods},
		{string(cascade.AnatomicRegion), &catalogs.Regions},
		{derivationSelector, &catalogs.Derivation},
	}
	for _, target := range targets {
		name, err := a.chooseVocabulary(ctx, target.selector)
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		c, _, err := a.wb.LoadVocabulary(ctx, name)
		if err != nil {
			a.notify(ctx, "vocabulary load failed: "+err.Error())
			continue
		}
		*target.catalog = c
	}

	attrs, err := wizard.New(a.driver, wizard.WithLogger(a.logger)).ParametricMap(ctx, attrs, catalogs)
	if err != nil {
		return nil, err
	}
	return assemble.ParametricMap(attrs), nil
}

// chooseVocabulary returns the manifest vocabulary feeding selector, asking
// when the manifest offers alternatives. "" means none is configured.
func (a *app) chooseVocabulary(ctx context.Context, selector string) (string, error) {
	alternatives := a.wb.Manifest().VocabulariesFor(selector)
	switch len(alternatives) {
	case 0:
		return "", nil
	case 1:
		return alternatives[0].Name, nil
	}
	options := make([]string, len(alternatives))
	for i, vocab := range alternatives {
		options[i] = vocabularyTitle(vocab)
	}
	idx, err := a.driver.Select(ctx, prompt.SelectConfig{
		Message: selector + " vocabulary",
		Options: options,
	})
	if err != nil {
		return "", err
	}
	return alternatives[idx].Name, nil
}

func (a *app) finish(ctx context.Context, identifier string, document any, printOnly bool) error {
	outcome := a.wb.ValidateValue(document)
	if outcome.NotLoaded {
		a.notify(ctx, outcome.Err.Error())
	} else if !outcome.Valid {
		return a.report(false, outcome.Messages())
	}

	art, err := artifact.New(identifier, document)
	if err != nil {
		return err
	}
	if printOnly {
		_, err := a.out.Write(art.Data)
		return err
	}
	path, err := art.WriteFile(a.cfg.OutputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Document written to %s\n", path)
	return nil
}

func (a *app) report(valid bool, messages []string) error {
	if valid {
		fmt.Fprintln(a.out, "valid")
		return nil
	}
	for _, msg := range messages {
		fmt.Fprintln(a.out, msg)
	}
	return errInvalidDocument
}

func (a *app) notify(ctx context.Context, msg string) {
	if err := a.driver.Info(ctx, msg); err != nil {
		a.logger.Warn().Err(err).Msg("notification failed")
	}
}

func (a *app) readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(a.in)
	}
	return os.ReadFile(name)
}

func vocabularyTitle(vocab sources.Vocabulary) string {
	if strings.TrimSpace(vocab.Title) != "" {
		return vocab.Title
	}
	return vocab.Name
}
