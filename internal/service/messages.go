package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/billspace/internal/calculator"
	"github.com/mmynk/billspace/internal/core"
	"github.com/mmynk/billspace/internal/models"
)

// User is the public view of an account. The password hash never leaves
// the server.
type User struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name"`
	Status      models.Status `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Space struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Icon      string        `json:"icon"`
	Status    models.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Member struct {
	SpaceID   string      `json:"space_id"`
	UserID    string      `json:"user_id"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Category struct {
	ID        string        `json:"id"`
	SpaceID   string        `json:"space_id"`
	Name      string        `json:"name"`
	Icon      string        `json:"icon"`
	Status    models.Status `json:"status"`
	CreatedBy string        `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Split struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type Bill struct {
	ID         string            `json:"id"`
	SpaceID    string            `json:"space_id"`
	Name       string            `json:"name"`
	Icon       string            `json:"icon"`
	Note       string            `json:"note"`
	Amount     decimal.Decimal   `json:"amount"`
	Currency   models.Currency   `json:"currency"`
	Cycle      int               `json:"cycle"`
	Interval   models.Interval   `json:"interval"`
	FirstBill  time.Time         `json:"first_bill"`
	PayerID    string            `json:"payer_id"`
	IsShared   bool              `json:"is_shared"`
	ParentID   string            `json:"parent_id,omitempty"`
	CategoryID string            `json:"category_id,omitempty"`
	SplitState models.SplitState `json:"split_state"`
	Splits     []Split           `json:"splits"`
	Status     models.Status     `json:"status"`
	CreatedBy  string            `json:"created_by"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type MemberBalance struct {
	UserID    string          `json:"user_id"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	TotalOwed decimal.Decimal `json:"total_owed"`
	Settled   decimal.Decimal `json:"settled"`
	Net       decimal.Decimal `json:"net"`
}

type Debt struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type CurrencyBalances struct {
	Currency models.Currency `json:"currency"`
	Members  []MemberBalance `json:"members"`
	Debts    []Debt          `json:"debts"`
}

type Settlement struct {
	ID         string          `json:"id"`
	SpaceID    string          `json:"space_id"`
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   models.Currency `json:"currency"`
	Note       string          `json:"note"`
	Status     models.Status   `json:"status"`
	CreatedBy  string          `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Requests and responses.

type (
	RegisterRequest         = core.RegisterDraft
	UpdateProfileRequest    = core.ProfileUpdate
	CreateSpaceRequest      = core.SpaceDraft
	CreateCategoryRequest   = core.CategoryDraft
	CreateBillRequest       = core.BillDraft
	RecordSettlementRequest = core.SettlementDraft
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type UserResponse struct {
	User User `json:"user"`
}

type SpaceRequest struct {
	SpaceID string `json:"space_id"`
}

type SpaceResponse struct {
	Space   Space    `json:"space"`
	Members []Member `json:"members"`
}

type ListSpacesResponse struct {
	Spaces []Space `json:"spaces"`
}

type MemberRequest struct {
	SpaceID string      `json:"space_id"`
	UserID  string      `json:"user_id"`
	Role    models.Role `json:"role,omitempty"`
}

type MemberResponse struct {
	Member Member `json:"member"`
}

type BalancesResponse struct {
	Balances []CurrencyBalances `json:"balances"`
}

type SettlementRequest struct {
	SettlementID string `json:"settlement_id"`
}

type SettlementResponse struct {
	Settlement Settlement `json:"settlement"`
}

type ListSettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
}

type CategoryRequest struct {
	CategoryID string `json:"category_id"`
}

type UpdateCategoryRequest struct {
	CategoryID string `json:"category_id"`
	core.CategoryUpdate
}

type CategoryResponse struct {
	Category Category `json:"category"`
}

type ListCategoriesResponse struct {
	Categories []Category `json:"categories"`
}

type BillRequest struct {
	BillID string `json:"bill_id"`
}

type UpdateBillRequest struct {
	BillID string `json:"bill_id"`
	core.BillUpdate
}

type AttachChildRequest struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
}

type SetPayersRequest struct {
	BillID string            `json:"bill_id"`
	Splits []core.SplitDraft `json:"splits"`
}

type SplitEvenlyRequest struct {
	BillID  string   `json:"bill_id"`
	UserIDs []string `json:"user_ids"`
}

type BillResponse struct {
	Bill Bill `json:"bill"`
}

type ListBillsResponse struct {
	Bills []Bill `json:"bills"`
}

// Conversions from domain models.

func toUser(u *models.User) User {
	return User{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toSpace(s *models.Space) Space {
	return Space{
		ID:        s.ID,
		Name:      s.Name,
		Icon:      s.Icon,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toMember(m *models.Membership) Member {
	return Member{
		SpaceID:   m.SpaceID,
		UserID:    m.UserID,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toSpaceResponse(d *core.SpaceDetail) *SpaceResponse {
	members := make([]Member, len(d.Members))
	for i, m := range d.Members {
		members[i] = toMember(m)
	}
	return &SpaceResponse{Space: toSpace(d.Space), Members: members}
}

func toCategory(c *models.Category) Category {
	return Category{
		ID:        c.ID,
		SpaceID:   c.SpaceID,
		Name:      c.Name,
		Icon:      c.Icon,
		Status:    c.Status,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toBill(b *models.Bill) Bill {
	splits := make([]Split, len(b.Splits))
	for i, s := range b.Splits {
		splits[i] = Split{UserID: s.UserID, Amount: s.Amount}
	}
	return Bill{
		ID:         b.ID,
		SpaceID:    b.SpaceID,
		Name:       b.Name,
		Icon:       b.Icon,
		Note:       b.Note,
		Amount:     b.Amount,
		Currency:   b.Currency,
		Cycle:      b.Cycle,
		Interval:   b.Interval,
		FirstBill:  b.FirstBill,
		PayerID:    b.PayerID,
		IsShared:   b.IsShared,
		ParentID:   b.ParentID,
		CategoryID: b.CategoryID,
		SplitState: b.SplitState,
		Splits:     splits,
		Status:     b.Status,
		CreatedBy:  b.CreatedBy,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func toBills(bills []*models.Bill) []Bill {
	out := make([]Bill, len(bills))
	for i, b := range bills {
		out[i] = toBill(b)
	}
	return out
}

func toBalances(balances []calculator.CurrencyBalances) []CurrencyBalances {
	out := make([]CurrencyBalances, len(balances))
	for i, cb := range balances {
		members := make([]MemberBalance, len(cb.Members))
		for j, m := range cb.Members {
			members[j] = MemberBalance{
				UserID:    m.UserID,
				TotalPaid: m.TotalPaid,
				TotalOwed: m.TotalOwed,
				Settled:   m.Settled,
				Net:       m.Net,
			}
		}
		debts := make([]Debt, len(cb.Debts))
		for j, d := range cb.Debts {
			debts[j] = Debt{From: d.From, To: d.To, Amount: d.Amount}
		}
		out[i] = CurrencyBalances{Currency: cb.Currency, Members: members, Debts: debts}
	}
	return out
}

func toSettlement(st *models.Settlement) Settlement {
	return Settlement{
		ID:         st.ID,
		SpaceID:    st.SpaceID,
		FromUserID: st.FromUserID,
		ToUserID:   st.ToUserID,
		Amount:     st.Amount,
		Currency:   st.Currency,
		Note:       st.Note,
		Status:     st.Status,
		CreatedBy:  st.CreatedBy,
		CreatedAt:  st.CreatedAt,
		UpdatedAt:  st.UpdatedAt,
	}
}
