package fulfillment

import (
	"context"
	"sync"
)

// fakeGameServer 记录调用, 行为由函数字段决定
type fakeGameServer struct {
	mu sync.Mutex

	CreateGuildFn func(req GuildRequest) (string, error)
	CreateRoleFn  func(req RoleRequest) (string, error)
	GrantGiftFn   func(req GiftRequest) error

	guilds []GuildRequest
	roles  []RoleRequest
	gifts  []GiftRequest
}

func (f *fakeGameServer) CreateGuild(_ context.Context, req GuildRequest) (string, error) {
	f.mu.Lock()
	f.guilds = append(f.guilds, req)
	f.mu.Unlock()
	if f.CreateGuildFn != nil {
		return f.CreateGuildFn(req)
	}
	return "g-1", nil
}

func (f *fakeGameServer) CreateRole(_ context.Context, req RoleRequest) (string, error) {
	f.mu.Lock()
	f.roles = append(f.roles, req)
	f.mu.Unlock()
	if f.CreateRoleFn != nil {
		return f.CreateRoleFn(req)
	}
	return "r-" + req.Region, nil
}

func (f *fakeGameServer) GrantGift(_ context.Context, req GiftRequest) error {
	f.mu.Lock()
	f.gifts = append(f.gifts, req)
	f.mu.Unlock()
	if f.GrantGiftFn != nil {
		return f.GrantGiftFn(req)
	}
	return nil
}
