// Package plugins turns the names given on the command line into ancestries
// and runs them through Clair.
package plugins

import (
	"context"
	"errors"
	"fmt"

	"github.com/paclair/paclair/internal/ancestry"
	"github.com/paclair/paclair/internal/clair"
	"github.com/paclair/paclair/internal/cmdlogger"
)

var ErrPluginNotFound = errors.New("plugin not found")

// Scanner is the part of the Clair client plugins rely on.
type Scanner interface {
	PostAncestry(ctx context.Context, a *ancestry.Ancestry) error
	DeleteAncestry(ctx context.Context, a *ancestry.Ancestry) error
	AncestryJSON(ctx context.Context, name string) ([]byte, error)
	Statistics(ctx context.Context, name string) (map[string]int, error)
	Rows(ctx context.Context, name string) ([]clair.Row, error)
}

type Plugin interface {
	Push(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error
	Analyse(ctx context.Context, name string, kind AnalysisKind) (*Analysis, error)

	// Ancestry builds what is pushed to Clair for name.
	Ancestry(ctx context.Context, name string) (*ancestry.Ancestry, error)
	// AncestryName is the name Clair knows the analysis of name by.
	AncestryName(ctx context.Context, name string) (string, error)
	// Artifact locates name in reports.
	Artifact(name string) string
}

// AnalysisKind selects what Analyse fetches.
type AnalysisKind int

const (
	AnalysisJSON AnalysisKind = iota
	AnalysisStatistics
	AnalysisRows
)

// Analysis is the result of Analyse; only the field matching the requested
// kind is set.
type Analysis struct {
	AncestryName string
	JSON         []byte
	Statistics   map[string]int
	Rows         []clair.Row
}

type builder interface {
	Ancestry(ctx context.Context, name string) (*ancestry.Ancestry, error)
	AncestryName(ctx context.Context, name string) (string, error)
}

// Base implements the Clair side of a plugin on top of the ancestries its
// builder makes.
type Base struct {
	Clair  Scanner
	Format string
	// DeleteBeforePush removes a previous analysis before pushing.
	DeleteBeforePush bool

	builder builder
}

func (b *Base) Push(ctx context.Context, name string) error {
	a, err := b.builder.Ancestry(ctx, name)
	if err != nil {
		return err
	}

	if b.DeleteBeforePush {
		cmdlogger.Debugf("Remove ancestry %s from Clair's database.", a.Name)

		err := b.Clair.DeleteAncestry(ctx, a)
		switch {
		case err == nil:
		case errors.Is(err, clair.ErrResourceNotFound):
			cmdlogger.Debugf("Ancestry %s not yet in Clair's database.", a.Name)
		case errors.Is(err, clair.ErrUnsupportedOperation):
			cmdlogger.Warnf("Ancestry %s could not be removed before pushing: %v", a.Name, err)
		default:
			return err
		}
	}

	return b.Clair.PostAncestry(ctx, a)
}

func (b *Base) Delete(ctx context.Context, name string) error {
	a, err := b.builder.Ancestry(ctx, name)
	if err != nil {
		return err
	}

	return b.Clair.DeleteAncestry(ctx, a)
}

func (b *Base) Analyse(ctx context.Context, name string, kind AnalysisKind) (*Analysis, error) {
	ancestryName, err := b.builder.AncestryName(ctx, name)
	if err != nil {
		return nil, err
	}

	result := &Analysis{AncestryName: ancestryName}
	switch kind {
	case AnalysisJSON:
		result.JSON, err = b.Clair.AncestryJSON(ctx, ancestryName)
	case AnalysisStatistics:
		result.Statistics, err = b.Clair.Statistics(ctx, ancestryName)
	case AnalysisRows:
		result.Rows, err = b.Clair.Rows(ctx, ancestryName)
	default:
		err = fmt.Errorf("unknown analysis kind %d", kind)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}
