package services

import "kinkeeper/session"

// requireOwner returns the active user id or ErrNotAuthenticated. Every
// accessor calls it first: rows are partitioned by owner and no operation
// is meaningful without a session.
func requireOwner(sess *session.Session) (string, error) {
	userID := sess.UserID()
	if userID == "" {
		return "", ErrNotAuthenticated
	}
	return userID, nil
}
