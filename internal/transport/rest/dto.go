package rest

import (
	"time"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/service/economy"
)

type petResponse struct {
	Name       string   `json:"name"`
	Level      int      `json:"level"`
	Exp        int      `json:"exp"`
	LastFed    string   `json:"lastFed,omitempty"`
	OwnedItems []string `json:"ownedItems"`
	Background string   `json:"background,omitempty"`
}

func toPetResponse(p domain.PetState) petResponse {
	owned := p.OwnedItems
	if owned == nil {
		owned = []string{}
	}
	return petResponse{
		Name:       p.Name,
		Level:      p.Level,
		Exp:        p.Exp,
		LastFed:    p.LastFed.String(),
		OwnedItems: owned,
		Background: p.Background,
	}
}

type stateResponse struct {
	StudentID string      `json:"studentId"`
	Name      string      `json:"name"`
	Points    int         `json:"points"`
	Pet       petResponse `json:"pet"`
	Busy      bool        `json:"busy"`
}

func toStateResponse(s economy.Snapshot) stateResponse {
	return stateResponse{
		StudentID: s.StudentID.String(),
		Name:      s.Name,
		Points:    s.Points,
		Pet:       toPetResponse(s.Pet),
		Busy:      s.Busy,
	}
}

type feedResponse struct {
	Points    int         `json:"points"`
	Pet       petResponse `json:"pet"`
	LeveledUp bool        `json:"leveledUp"`
}

type purchaseResponse struct {
	Points int              `json:"points"`
	Pet    petResponse      `json:"pet"`
	Item   shopItemResponse `json:"item"`
}

type degenerationResponse struct {
	Pet     petResponse `json:"pet"`
	Changed bool        `json:"changed"`
}

type shopItemResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Price int    `json:"price"`
	Icon  string `json:"icon,omitempty"`
}

func toShopItemResponse(it domain.ShopItem) shopItemResponse {
	return shopItemResponse{
		ID:    it.ID,
		Name:  it.Name,
		Kind:  string(it.Kind),
		Price: it.Price,
		Icon:  it.Icon,
	}
}

type notificationResponse struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func toNotificationResponse(n domain.Notification) notificationResponse {
	return notificationResponse{
		Type:      n.Type.String(),
		Message:   n.Message,
		Icon:      n.Icon,
		Timestamp: n.Timestamp,
	}
}

type refreshResponse struct {
	Activity bool `json:"activity"`
	Points   bool `json:"points"`
	Stats    bool `json:"stats"`
}

func toRefreshResponse(k domain.RefreshKind) refreshResponse {
	return refreshResponse{
		Activity: k.Has(domain.RefreshActivity),
		Points:   k.Has(domain.RefreshPoints),
		Stats:    k.Has(domain.RefreshStats),
	}
}

type announcementResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Seen      bool      `json:"seen"`
}

func toAnnouncementResponse(a domain.Announcement) announcementResponse {
	return announcementResponse{
		ID:        a.ID,
		Title:     a.Title,
		Body:      a.Body,
		CreatedAt: a.CreatedAt,
		Seen:      a.Seen,
	}
}
