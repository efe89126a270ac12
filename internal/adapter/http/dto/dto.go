package dto

import (
	"time"

	"qr-loyalty-backend/internal/core/domain"
	"qr-loyalty-backend/internal/core/ports"

	"github.com/google/uuid"
)

// ---- Auth ----

// RegisterCustomerRequest is the request body for customer sign-up.
type RegisterCustomerRequest struct {
	Email     string  `json:"email" binding:"required,email,max=255"`
	Password  string  `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	FirstName string  `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string  `json:"last_name" binding:"required,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" binding:"omitempty,max=30"`
	City      *string `json:"city,omitempty" binding:"omitempty,max=100"`
}

// RegisterMerchantRequest is the request body for merchant account sign-up.
type RegisterMerchantRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// RefreshRequest carries the refresh token to exchange.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required" sanitize:"-"`
}

// ProviderLoginRequest is the identity asserted by Google or Apple.
type ProviderLoginRequest struct {
	Provider   string `json:"provider" binding:"required,oneof=google apple"`
	ProviderID string `json:"provider_id" binding:"required,safe_id,max=255"`
	Email      string `json:"email" binding:"required,email"`
	FirstName  string `json:"first_name" binding:"max=100"`
	LastName   string `json:"last_name" binding:"max=100"`
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required" sanitize:"-"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128" sanitize:"-"`
}

// AuthResponse is the account with its fresh token pair.
type AuthResponse struct {
	Account *domain.Account `json:"account"`
	Tokens  ports.TokenPair `json:"tokens"`
}

// ---- Accounts ----

// UpdateCustomerRequest is a partial customer profile update.
type UpdateCustomerRequest struct {
	FirstName *string `json:"first_name,omitempty" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" binding:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" binding:"omitempty,max=30"`
	City      *string `json:"city,omitempty" binding:"omitempty,max=100"`
}

// BlacklistRequest carries the reason shown to the blocked account.
type BlacklistRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// AccountListQuery holds admin account list filters.
type AccountListQuery struct {
	Role     string `form:"role" binding:"omitempty,oneof=admin merchant customer"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ---- Merchants ----

// MerchantProfileRequest is used for both profile creation and partial update.
type MerchantProfileRequest struct {
	BusinessName *string    `json:"business_name,omitempty" binding:"omitempty,min=2,max=255"`
	Description  *string    `json:"description,omitempty" binding:"omitempty,max=2000"`
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
	Address      *string    `json:"address,omitempty" binding:"omitempty,min=3,max=500"`
	City         *string    `json:"city,omitempty" binding:"omitempty,min=1,max=100"`
	PostalCode   *string    `json:"postal_code,omitempty" binding:"omitempty,max=20"`
	Phone        *string    `json:"phone,omitempty" binding:"omitempty,max=30"`
	Website      *string    `json:"website,omitempty" binding:"omitempty,safe_url,max=500" sanitize:"-"`
	Latitude     *float64   `json:"latitude,omitempty" binding:"omitempty,min=-90,max=90"`
	Longitude    *float64   `json:"longitude,omitempty" binding:"omitempty,min=-180,max=180"`
}

// Missing returns the name of the first field a new profile requires but
// the request lacks.
func (r *MerchantProfileRequest) Missing() string {
	switch {
	case r.BusinessName == nil:
		return "business_name"
	case r.CategoryID == nil:
		return "category_id"
	case r.Address == nil:
		return "address"
	case r.City == nil:
		return "city"
	case r.Latitude == nil:
		return "latitude"
	case r.Longitude == nil:
		return "longitude"
	}
	return ""
}

// Input converts the request to the service input.
func (r *MerchantProfileRequest) Input() ports.MerchantProfileInput {
	return ports.MerchantProfileInput{
		BusinessName: r.BusinessName,
		Description:  r.Description,
		CategoryID:   r.CategoryID,
		Address:      r.Address,
		City:         r.City,
		PostalCode:   r.PostalCode,
		Phone:        r.Phone,
		Website:      r.Website,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
	}
}

// ImageRequest names an image by URL.
type ImageRequest struct {
	URL string `json:"url" binding:"required,safe_url,max=500" sanitize:"-"`
}

// OpeningHoursRequest is the full weekly schedule.
type OpeningHoursRequest struct {
	Hours domain.WeeklyHours `json:"opening_hours" binding:"required"`
}

// MerchantListQuery holds public merchant list filters.
type MerchantListQuery struct {
	City       string `form:"city" binding:"omitempty,max=100"`
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// NearbyQuery holds proximity search parameters.
type NearbyQuery struct {
	Latitude   *float64 `form:"lat" binding:"required,min=-90,max=90"`
	Longitude  *float64 `form:"lon" binding:"required,min=-180,max=180"`
	RadiusKm   float64  `form:"radius_km" binding:"omitempty,gt=0,max=100"`
	CategoryID string   `form:"category_id" binding:"omitempty,uuid"`
}

// ---- Categories ----

// CategoryRequest is used for both category creation and partial update.
type CategoryRequest struct {
	Name         *string    `json:"name,omitempty" binding:"omitempty,min=2,max=100"`
	Slug         *string    `json:"slug,omitempty" binding:"omitempty,min=2,max=100,safe_id"`
	Description  *string    `json:"description,omitempty" binding:"omitempty,max=1000"`
	Icon         *string    `json:"icon,omitempty" binding:"omitempty,max=100"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	ClearParent  bool       `json:"clear_parent,omitempty"`
	DisplayOrder *int       `json:"display_order,omitempty" binding:"omitempty,min=0"`
	Active       *bool      `json:"active,omitempty"`
}

// Input converts the request to the service input.
func (r *CategoryRequest) Input() ports.CategoryInput {
	return ports.CategoryInput{
		Name:         r.Name,
		Slug:         r.Slug,
		Description:  r.Description,
		Icon:         r.Icon,
		ParentID:     r.ParentID,
		ClearParent:  r.ClearParent,
		DisplayOrder: r.DisplayOrder,
		Active:       r.Active,
	}
}

// ---- Promotions ----

// PromotionRequest is used for both promotion creation and partial update.
// Title length and the date window are checked by the service.
type PromotionRequest struct {
	Title       *string    `json:"title,omitempty" binding:"omitempty,max=255"`
	Description *string    `json:"description,omitempty" binding:"omitempty,max=2000"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Active      *bool      `json:"active,omitempty"`
}

// Input converts the request to the service input.
func (r *PromotionRequest) Input() ports.PromotionInput {
	return ports.PromotionInput{
		Title:       r.Title,
		Description: r.Description,
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
		Active:      r.Active,
	}
}

// PromotionListQuery holds public promotion list filters.
type PromotionListQuery struct {
	City       string `form:"city" binding:"omitempty,max=100"`
	CategoryID string `form:"category_id" binding:"omitempty,uuid"`
}

// ---- Redemptions & ratings ----

// RedeemRequest is the scan submitted by a merchant.
type RedeemRequest struct {
	QRToken     string    `json:"qr_token" binding:"required,safe_id,max=64"`
	PromotionID uuid.UUID `json:"promotion_id" binding:"required"`
}

// RateRequest rates one redemption. Score bounds are enforced by the service
// so that out-of-range scores surface as InvalidScore.
type RateRequest struct {
	RedemptionID uuid.UUID `json:"redemption_id" binding:"required"`
	Score        int       `json:"score"`
	Comment      *string   `json:"comment,omitempty" binding:"omitempty,max=1000"`
}

// RatingResponse is the stored rating with the merchant's new aggregate.
type RatingResponse struct {
	Rating    *domain.Rating         `json:"rating"`
	Aggregate domain.RatingAggregate `json:"merchant_rating"`
}

// PageQuery holds plain pagination parameters.
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PaginatedResponse wraps a page of items.
type PaginatedResponse struct {
	Items    any   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// NewPage fills in the pagination defaults the repositories apply.
func NewPage(items any, total int64, page, pageSize int) PaginatedResponse {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return PaginatedResponse{Items: items, Total: total, Page: page, PageSize: pageSize}
}
