package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

type announcementRow struct {
	ID        json.RawMessage `json:"id"`
	ClassID   uuid.UUID       `json:"class_id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListAnnouncements returns the newest announcements of a class.
func (c *Client) ListAnnouncements(ctx context.Context, classID uuid.UUID, limit int) ([]domain.Announcement, error) {
	var rows []announcementRow
	err := c.call(ctx, "list announcements", callOpts{idempotent: true}, func(x *exchange) error {
		pg, err := x.rest()
		if err != nil {
			return err
		}
		_, err = pg.From("announcements").
			Select("id,class_id,title,content,created_at", "", false).
			Eq("class_id", classID.String()).
			Order("created_at", &postgrest.OrderOpts{Ascending: false}).
			Limit(limit, "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}

	out := make([]domain.Announcement, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Announcement{
			ID:        strings.Trim(string(r.ID), `"`),
			ClassID:   r.ClassID,
			Title:     r.Title,
			Body:      r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}
