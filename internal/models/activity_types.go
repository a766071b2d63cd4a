package models

import "time"

// Known action_type tags. The column is an open string, not an enum:
// new tags can appear without a schema change.
const (
	ActionProductAdded         = "PRODUCT_ADDED"
	ActionProductUpdated       = "PRODUCT_UPDATED"
	ActionProductDeleted       = "PRODUCT_DELETED"
	ActionStockUpdated         = "STOCK_UPDATED"
	ActionPriceUpdated         = "PRICE_UPDATED"
	ActionDiscountApplied      = "DISCOUNT_APPLIED"
	ActionDiscountRemoved      = "DISCOUNT_REMOVED"
	ActionOrderCompleted       = "ORDER_COMPLETED"
	ActionOrderStatusUpdated   = "ORDER_STATUS_UPDATED"
	ActionCategoryAdded        = "CATEGORY_ADDED"
	ActionCategoryUpdated      = "CATEGORY_UPDATED"
	ActionCategoryDeleted      = "CATEGORY_DELETED"
	ActionStaffLogin           = "STAFF_LOGIN"
	ActionRequestStatusUpdated = "REQUEST_STATUS_UPDATED"
	ActionRequestReplySent     = "REQUEST_REPLY_SENT"
)

// ActivityLog is the model for the 'activity_logs' table. Append-only:
// rows are never mutated or deleted. ObjectID/ObjectRepr snapshot the
// affected entity so entries stay readable after it is deleted, and the
// description is generated at write time, not re-derived later.
type ActivityLog struct {
	ID          int64     `json:"id" db:"id"`
	UserID      *int64    `json:"userId,omitempty" db:"user_id"`
	Username    string    `json:"username,omitempty" db:"-"`
	ActionTime  time.Time `json:"actionTime" db:"action_time"`
	ActionType  string    `json:"actionType" db:"action_type"`
	Description string    `json:"description" db:"description"`
	ObjectID    *int64    `json:"objectId,omitempty" db:"object_id"`
	ObjectRepr  *string   `json:"objectRepr,omitempty" db:"object_repr"`
}
