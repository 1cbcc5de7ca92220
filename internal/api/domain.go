package api

import (
	"fmt"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/categorization"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/collections"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/config"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/detection"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/documents"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/extraction"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/ledger"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/sessions"
	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/workflow"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents   documents.System
	Collections collections.System
	Records     records.System
	Sessions    sessions.System
}

// NewDomain creates all domain systems from the API runtime. It fails when
// the provider chain cannot be built, which happens when the fallback list
// names an unknown backend.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	chain, vocab, err := providers.Build(&cfg.Providers, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("provider chain: %w", err)
	}

	db := runtime.Database.Connection()

	docsSystem := documents.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	collectionsSystem := collections.New(db, runtime.Logger, runtime.Pagination)

	docStore := records.NewDocumentStore(db, runtime.Logger)
	recordsSystem := records.New(
		docStore,
		runtime.Semantic,
		cfg.Records,
		runtime.Logger,
		runtime.Pagination,
	)

	detector := detection.New(chain, vocab, &cfg.Detection, runtime.Logger)

	pipeline := &workflow.Runtime{
		Documents:   docsSystem,
		Extractor:   extraction.New(runtime.Logger),
		Detector:    detector,
		Categorizer: categorization.New(chain, &cfg.Categorization, runtime.Logger),
		Records:     recordsSystem,
		Logger:      runtime.Logger,
	}

	sessionsSystem := sessions.New(
		pipeline,
		detector,
		docStore,
		ledger.DefaultPricing(),
		runtime.Lifecycle,
		cfg.Sessions,
		runtime.Logger,
	)

	return &Domain{
		Documents:   docsSystem,
		Collections: collectionsSystem,
		Records:     recordsSystem,
		Sessions:    sessionsSystem,
	}, nil
}
