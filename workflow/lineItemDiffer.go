package workflow

import (
	"fmt"

	"github.com/mmdatafocus/sales_backend/models"
)

type ChangeKind int

const (
	// request carries no detail id
	ChangeNew ChangeKind = iota
	// request carries the id of an existing detail of the same sale
	ChangeMatched
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeNew:
		return "New"
	case ChangeMatched:
		return "Matched"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

type ClassifiedItem struct {
	Kind    ChangeKind
	Request models.NewSaleDetail
	// set for ChangeMatched only
	Existing *models.SaleDetail
}

// LineItemDiff keeps removals apart from requested items so removals can be
// restored before anything is consumed.
type LineItemDiff struct {
	Removed []models.SaleDetail
	// in request order
	Changes []ClassifiedItem
}

// DiffLineItems classifies requested line items against the existing details of saleId.
// An id that is not a detail of the sale fails with a line-item NotFoundError.
func DiffLineItems(saleId int, existing []models.SaleDetail, requested []models.NewSaleDetail) (*LineItemDiff, error) {
	existingByID := make(map[int]*models.SaleDetail, len(existing))
	for i := range existing {
		existingByID[existing[i].ID] = &existing[i]
	}

	diff := &LineItemDiff{Changes: make([]ClassifiedItem, 0, len(requested))}
	matched := make(map[int]bool, len(requested))
	for i, req := range requested {
		if req.DetailId == nil {
			diff.Changes = append(diff.Changes, ClassifiedItem{Kind: ChangeNew, Request: req})
			continue
		}
		detailId := *req.DetailId
		old, ok := existingByID[detailId]
		if !ok {
			return nil, models.NewLineItemNotInSaleError(saleId, detailId)
		}
		if matched[detailId] {
			return nil, models.NewValidationError(map[string]string{
				fmt.Sprintf("details[%d].detail_id", i): fmt.Sprintf("sale detail %d is requested more than once", detailId),
			})
		}
		matched[detailId] = true
		diff.Changes = append(diff.Changes, ClassifiedItem{Kind: ChangeMatched, Request: req, Existing: old})
	}

	for _, d := range existing {
		if !matched[d.ID] {
			diff.Removed = append(diff.Removed, d)
		}
	}
	return diff, nil
}
