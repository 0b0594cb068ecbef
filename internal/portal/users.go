package portal

import (
	"context"
	"fmt"
	"strings"
)

// RegisterUser adds an inactive user that waits for ApproveUser.
func (s *Store) RegisterUser(ctx context.Context, in NewUser) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateStruct(in); err != nil {
		return User{}, s.fail(OpRegisterUser, "", err)
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, in.Email) && u.Role == in.Role {
			return User{}, s.fail(OpRegisterUser, "", invalid("Email", fmt.Sprintf("%s is already registered as %s", in.Email, in.Role)))
		}
	}

	user := User{
		ID:         s.newID(),
		Name:       in.Name,
		Email:      in.Email,
		Role:       in.Role,
		Status:     UserInactive,
		Specialty:  in.Specialty,
		JoinedDate: s.now().Format("2006-01-02"),
	}
	s.users = append(s.users, user)

	err := s.persist(ctx, KeyUsers)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Admin", "User %s registered as %s", user.ID, user.Role))
	s.emit(OpRegisterUser, user.ID, err)
	return user, err
}

// ApproveUser activates a user. Approving an active user changes
// nothing and writes no log entry.
func (s *Store) ApproveUser(ctx context.Context, userID string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.userIndex(userID)
	if i < 0 {
		return User{}, s.fail(OpApproveUser, userID, notFound("user", userID))
	}
	if s.users[i].Status == UserActive {
		s.emit(OpApproveUser, userID, nil)
		return s.users[i], nil
	}

	s.users[i].Status = UserActive

	err := s.persist(ctx, KeyUsers)
	err = firstErr(err, s.logLocked(ctx, LevelInfo, "Admin", "User %s approved", userID))
	s.emit(OpApproveUser, userID, err)
	return s.users[i], err
}

// AddLog prepends a system log entry.
func (s *Store) AddLog(ctx context.Context, message string, level LogLevel, source string) (SystemLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateVar("level", string(level), "oneof=info warning error"); err != nil {
		return SystemLog{}, s.fail(OpAddLog, "", err)
	}

	err := s.logLocked(ctx, level, source, "%s", message)
	entry := s.logs[0]
	s.emit(OpAddLog, entry.ID, err)
	return entry, err
}
