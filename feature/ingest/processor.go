package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"apptrack/core/reconcile"
	"apptrack/core/storage"
)

// ApplicationLister supplies the digest of known applications handed to the
// classifier for link detection.
type ApplicationLister interface {
	List(ctx context.Context, statusFilter, companyFilter string) ([]reconcile.Application, error)
}

// Processor runs one ingestion pass: list matching messages, classify each
// one and apply the resulting event through the reconciliation engine.
// Messages are processed sequentially so that earlier events in a batch are
// visible when later ones resolve.
type Processor struct {
	source     Source
	classifier Classifier
	engine     *reconcile.Engine
	lister     ApplicationLister
	archive    storage.Client
	bucket     string
	cfg        Config
	logger     *zap.Logger
}

// NewProcessor wires an ingestion pass. archive may be nil, in which case raw
// messages are not kept.
func NewProcessor(source Source, classifier Classifier, engine *reconcile.Engine, lister ApplicationLister, archive storage.Client, bucket string, cfg Config, logger *zap.Logger) *Processor {
	return &Processor{
		source:     source,
		classifier: classifier,
		engine:     engine,
		lister:     lister,
		archive:    archive,
		bucket:     bucket,
		cfg:        cfg,
		logger:     logger,
	}
}

// Summary counts what one ingestion pass did.
type Summary struct {
	Fetched   int `json:"fetched"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Merged    int `json:"merged"`
	Discarded int `json:"discarded"`
	Failed    int `json:"failed"`
}

// Run executes one ingestion pass. A failing message is counted and skipped;
// only listing failures abort the pass.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	refs, err := p.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingestion pass: %w", err)
	}
	summary := &Summary{Fetched: len(refs)}
	if len(refs) == 0 {
		p.logger.Info("No messages matched the query")
		return summary, nil
	}

	existing, err := p.lister.List(ctx, "", "")
	if err != nil {
		return nil, fmt.Errorf("ingestion pass: %w", err)
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result, err := p.processOne(ctx, ref.ID, existing)
		if err != nil {
			p.logger.Error("Message processing failed",
				zap.String("message_id", ref.ID),
				zap.Error(err))
			summary.Failed++
			continue
		}

		switch result.Outcome {
		case reconcile.OutcomeCreated:
			summary.Created++
			// Refresh the digest so later messages in this batch can link
			// against the record this one created.
			if existing, err = p.lister.List(ctx, "", ""); err != nil {
				return summary, fmt.Errorf("ingestion pass: %w", err)
			}
		case reconcile.OutcomeUpdated:
			summary.Updated++
		case reconcile.OutcomeMerged:
			summary.Merged++
		case reconcile.OutcomeDiscarded:
			summary.Discarded++
		}

		if p.cfg.MarkAsRead {
			if err := p.source.MarkRead(ctx, ref.ID); err != nil {
				p.logger.Warn("Marking message read failed",
					zap.String("message_id", ref.ID),
					zap.Error(err))
			}
		}
	}

	p.logger.Info("Ingestion pass complete",
		zap.Int("fetched", summary.Fetched),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("merged", summary.Merged),
		zap.Int("discarded", summary.Discarded),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (p *Processor) processOne(ctx context.Context, id string, existing []reconcile.Application) (*reconcile.Result, error) {
	msg, err := p.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.archive != nil {
		if err := p.archiveRaw(ctx, msg); err != nil {
			p.logger.Warn("Archiving raw message failed",
				zap.String("message_id", id),
				zap.Error(err))
		}
	}

	ev, err := p.classifier.Classify(ctx, msg, existing)
	if err != nil {
		return nil, err
	}

	result, err := p.engine.Apply(ctx, ev)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Message applied",
		zap.String("message_id", id),
		zap.String("outcome", string(result.Outcome)),
		zap.String("strategy", result.Strategy.String()),
		zap.String("company", ev.Company),
		zap.String("status", string(ev.Status)))
	return result, nil
}

// archiveRaw stores the message JSON under the configured object prefix.
func (p *Processor) archiveRaw(ctx context.Context, msg *Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	objectName := p.cfg.ArchivePrefix + msg.ID + ".json"
	_, err = p.archive.PutObject(ctx, p.bucket, objectName, bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}
