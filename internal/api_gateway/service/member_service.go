package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/splitledger/internal/domain/member"
)

// MemberServiceImpl implements the MemberService interface
type MemberServiceImpl struct {
	directory member.Directory
}

// NewMemberService creates a new member service
func NewMemberService(directory member.Directory) MemberService {
	return &MemberServiceImpl{
		directory: directory,
	}
}

// CreateMember registers a new member with the given display name
func (s *MemberServiceImpl) CreateMember(ctx context.Context, displayName string) (*member.Member, error) {
	if displayName == "" {
		return nil, errors.New("display name cannot be empty")
	}

	m := &member.Member{
		ID:          uuid.New(),
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
	if err := s.directory.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMemberByID retrieves a member by its ID, returns ErrMemberNotFound if not found
func (s *MemberServiceImpl) GetMemberByID(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	return s.directory.GetByID(ctx, id)
}
