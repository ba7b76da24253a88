package store

// RefreshSession is what a refresh token resolves to.
type RefreshSession struct {
	UserID      string
	SessionID   string
	DisplayName string
}
