package models

// User carries the two quota fields the delivery layer owns. The rest of
// the user record belongs to the user service.
type User struct {
	ID             int    `db:"id" json:"id"`
	Username       string `db:"username" json:"username"`
	IsPremium      bool   `db:"is_premium" json:"is_premium"`
	QuotaRemaining int    `db:"quota_remaining" json:"quota_remaining"`
	QuotaDay       string `db:"quota_day" json:"quota_day"`
}
