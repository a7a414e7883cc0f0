package wizard

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/goliatone/go-dcmmeta/pkg/form"
	"github.com/goliatone/go-dcmmeta/pkg/prompt"
)

type textField struct {
	message  string
	target   *string
	required bool
	integer  bool
}

func (w *Wizard) series(ctx context.Context, current form.SeriesAttributes) (form.SeriesAttributes, error) {
	out := current
	fields := []textField{
		{message: "Content creator name", target: &out.ContentCreatorName, required: true},
		{message: "Clinical trial series ID", target: &out.ClinicalTrialSeriesID, required: true},
		{message: "Clinical trial time point ID", target: &out.ClinicalTrialTimePointID, required: true},
		{message: "Clinical trial coordinating center name", target: &out.ClinicalTrialCoordinatingCenterName},
		{message: "Series description", target: &out.SeriesDescription, required: true},
		{message: "Series number", target: &out.SeriesNumber, required: true, integer: true},
		{message: "Instance number", target: &out.InstanceNumber, required: true, integer: true},
		{message: "Body part examined", target: &out.BodyPartExamined},
	}
	if err := w.fill(ctx, fields); err != nil {
		return current, err
	}
	return out, nil
}

func (w *Wizard) fill(ctx context.Context, fields []textField) error {
	for _, field := range fields {
		value, err := w.driver.Input(ctx, prompt.InputConfig{
			Message:   field.message,
			Default:   *field.target,
			Validator: field.validator(),
		})
		if err != nil {
			return err
		}
		*field.target = strings.TrimSpace(value)
	}
	return nil
}

func (f textField) validator() func(string) error {
	if !f.required && !f.integer {
		return nil
	}
	return func(value string) error {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			if f.required {
				return errors.New("a value is required")
			}
			return nil
		}
		if f.integer {
			if _, err := strconv.Atoi(trimmed); err != nil {
				return errors.New("must be an integer")
			}
		}
		return nil
	}
}
