package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/service/session"
)

// sessions opens or reuses the caller's live mirror.
type sessions interface {
	Acquire(ctx context.Context) (*session.Session, error)
}

type shopCatalog interface {
	Items() []domain.ShopItem
}

// PetHandler serves the student's points, pet and shop.
type PetHandler struct {
	sessions sessions
	shop     shopCatalog
	log      *slog.Logger
}

// NewPetHandler creates a PetHandler.
func NewPetHandler(s sessions, shop shopCatalog, logger *slog.Logger) *PetHandler {
	return &PetHandler{sessions: s, shop: shop, log: logger.With("handler", "pet")}
}

// Me returns the caller's points and pet.
// GET /api/v1/me
func (h *PetHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(s.Mirror().Snapshot()))
}

// Feed feeds the pet.
// POST /api/v1/pet/feed
func (h *PetHandler) Feed(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	res, err := s.Mirror().Feed(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, feedResponse{
		Points:    res.Points,
		Pet:       toPetResponse(res.Pet),
		LeveledUp: res.LeveledUp,
	})
}

// Purchase buys a shop item.
// POST /api/v1/pet/items/{itemID}/purchase
func (h *PetHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	res, err := s.Mirror().BuyItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{
		Points: res.Points,
		Pet:    toPetResponse(res.Pet),
		Item:   toShopItemResponse(res.Item),
	})
}

type backgroundRequest struct {
	ItemID string `json:"itemId"`
}

// Background equips an owned background. An empty itemId resets it.
// PUT /api/v1/pet/background
func (h *PetHandler) Background(w http.ResponseWriter, r *http.Request) {
	var req backgroundRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	pet, err := s.Mirror().EquipItem(r.Context(), strings.TrimSpace(req.ItemID))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPetResponse(pet))
}

// DegenerationCheck applies the starvation rule for today.
// POST /api/v1/pet/degeneration-check
func (h *PetHandler) DegenerationCheck(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	res, err := s.Mirror().CheckDegeneration(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, degenerationResponse{Pet: toPetResponse(res.Pet), Changed: res.Changed})
}

type commentRewardResponse struct {
	NewPoints *int `json:"newPoints"`
}

// CommentReward claims the reward for commenting on a post. newPoints is null
// when the ledger granted nothing.
// POST /api/v1/posts/{postID}/comment-reward
func (h *PetHandler) CommentReward(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	points, err := s.Mirror().RewardComment(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, commentRewardResponse{NewPoints: points})
}

// ShopItems lists the purchasable items.
// GET /api/v1/shop/items
func (h *PetHandler) ShopItems(w http.ResponseWriter, r *http.Request) {
	items := h.shop.Items()
	resp := make([]shopItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, toShopItemResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PetHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Acquire(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return nil, false
	}
	return s, true
}
