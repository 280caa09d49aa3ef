package inspection

import (
	"context"
	"fmt"
	"strings"

	"github.com/lewtec/vistoria/internal/domain"
)

// ShopTokens answers token status from the configured shop. Only the
// configured shop can be connected.
type ShopTokens struct {
	Meta MetaConfig
}

func (t ShopTokens) TokenStatus(_ context.Context, shopID string) (domain.TokenStatus, error) {
	if shopID != t.Meta.ShopID {
		return domain.TokenStatus{}, nil
	}
	return domain.TokenStatus{HasToken: t.Meta.Token != "", ShopName: t.Meta.ShopName}, nil
}

var _ domain.TokenStatusChecker = ShopTokens{}

// DraftDirectory looks repair orders up among the local drafts. A repair
// order is the set of drafts sharing its number; each draft is one task.
type DraftDirectory struct {
	Drafts domain.DraftRepository
	Tokens domain.TokenStatusChecker
}

func (d *DraftDirectory) Lookup(ctx context.Context, shopID, roNumber string) (*domain.RepairOrderResult, error) {
	if d.Tokens != nil {
		status, err := d.Tokens.TokenStatus(ctx, shopID)
		if err != nil {
			return nil, err
		}
		if !status.HasToken {
			return nil, domain.ErrNoToken
		}
	}
	drafts, err := d.Drafts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("while listing drafts: %w", err)
	}
	roNumber = strings.TrimSpace(roNumber)
	var ret *domain.RepairOrderResult
	// List is newest first, so the first match carries the freshest data.
	for _, draft := range drafts {
		if draft.ShopID != shopID || draft.RONumber != roNumber {
			continue
		}
		if ret == nil {
			ret = &domain.RepairOrderResult{
				ROID:         draft.ROID,
				RONumber:     draft.RONumber,
				CustomerName: draft.CustomerName,
				Vehicle:      draft.Vehicle,
			}
		}
		ret.Tasks = append(ret.Tasks, domain.RepairOrderTask{
			ID:           draft.TaskID,
			InspectionID: draft.InspectionID,
		})
	}
	if ret == nil {
		return nil, fmt.Errorf("%w: repair order %s", domain.ErrNotFound, roNumber)
	}
	return ret, nil
}

var _ domain.RepairOrderLookup = (*DraftDirectory)(nil)
