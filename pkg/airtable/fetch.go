package airtable

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-sync/internal/model"
	"github.com/sells-group/crm-sync/internal/resilience"
)

// FetchOptions configures FetchAll.
type FetchOptions struct {
	PageSize int
	Retry    resilience.RetryConfig
}

// FetchResult holds every record read from a table. Complete is false when
// a page after the first failed and the read stopped early; Err then holds
// the cause and Records holds the pages read before it.
type FetchResult struct {
	Table    string
	Records  []model.ExternalRecord
	Pages    int
	Complete bool
	Err      error
}

// FetchAll reads every page of table, following the offset cursor until a
// page arrives without one. Each page is retried on transient errors. A
// failure on the first page is returned as an error; a failure on a later
// page ends the read and is reported through FetchResult.
func FetchAll(ctx context.Context, c Client, table string, opts FetchOptions) (*FetchResult, error) {
	log := zap.L().With(zap.String("component", "airtable.fetch"), zap.String("table", table))

	retry := opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("airtable", "list "+table)
	}

	res := &FetchResult{Table: table}
	offset := ""
	for {
		page, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*ListResponse, error) {
			return c.ListRecords(ctx, table, ListOptions{PageSize: opts.PageSize, Offset: offset})
		})
		if err != nil {
			if res.Pages == 0 || ctx.Err() != nil {
				return nil, eris.Wrapf(err, "airtable: fetch %s", table)
			}
			log.Error("fetch stopped early, result is partial",
				zap.Int("pages", res.Pages),
				zap.Int("records", len(res.Records)),
				zap.Error(err),
			)
			res.Err = eris.Wrapf(err, "airtable: fetch %s page %d", table, res.Pages+1)
			return res, nil
		}

		res.Pages++
		res.Records = append(res.Records, page.Records...)
		log.Info("fetched page",
			zap.Int("page", res.Pages),
			zap.Int("page_records", len(page.Records)),
			zap.Int("total", len(res.Records)),
		)

		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}

	res.Complete = true
	return res, nil
}
