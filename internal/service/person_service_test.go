package service_test

import (
	"context"
	"testing"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPersonService(e *testEnv) (*service.PersonService, *pkg.TokenIssuer) {
	tokens := pkg.NewTokenIssuer("access-test", "refresh-test")
	return service.NewPersonService(e.persons, e.sessions, e.graph, tokens, fastRetry), tokens
}

var alice = service.RegisterInput{FirstName: "Alice", LastName: "Liddell", Email: "Alice@Example.com", Password: "wonderland"}

func TestRegisterMirrorsPersonNode(t *testing.T) {
	e := newTestEnv(t)
	svc, _ := newPersonService(e)
	ctx := context.Background()

	p, err := svc.Register(ctx, alice)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.NotEqual(t, alice.Password, p.Password)
	assert.True(t, e.graph.persons[p.ID])

	_, err = svc.Register(ctx, alice)
	assert.True(t, pkg.IsKind(err, pkg.KindConflict))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newPersonService(newTestEnv(t))
	ctx := context.Background()

	bad := alice
	bad.Email = "not-an-email"
	_, err := svc.Register(ctx, bad)
	assert.True(t, pkg.IsKind(err, pkg.KindValidation))

	bad = alice
	bad.Password = "123"
	_, err = svc.Register(ctx, bad)
	assert.True(t, pkg.IsKind(err, pkg.KindValidation))

	bad = alice
	bad.FirstName = " "
	_, err = svc.Register(ctx, bad)
	assert.True(t, pkg.IsKind(err, pkg.KindValidation))
}

func TestRegisterDropsPersonWhenGraphFails(t *testing.T) {
	e := newTestEnv(t)
	svc, _ := newPersonService(e)
	e.graph.failPersons = true

	_, err := svc.Register(context.Background(), alice)
	require.Error(t, err)

	var n int64
	require.NoError(t, e.db.Model(&model.Person{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, e.graph.persons)

	// 账号行已删掉，图恢复后同一邮箱可以重新注册
	e.graph.failPersons = false
	p, err := svc.Register(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, e.graph.persons[p.ID])
}

func TestLoginLogoutRefresh(t *testing.T) {
	e := newTestEnv(t)
	svc, tokens := newPersonService(e)
	ctx := context.Background()

	p, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	assert.True(t, pkg.IsKind(err, pkg.KindForbidden))
	_, err = svc.Login(ctx, "nobody@example.com", "wonderland")
	assert.True(t, pkg.IsKind(err, pkg.KindForbidden))

	pair, err := svc.Login(ctx, " ALICE@example.com ", "wonderland")
	require.NoError(t, err)
	claims, err := tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p.ID, claims.PersonID)

	stored, err := e.sessions.GetToken(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, stored)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	stored, err = e.sessions.GetToken(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, refreshed.AccessToken, stored)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.True(t, pkg.IsKind(err, pkg.KindForbidden))

	require.NoError(t, svc.Logout(ctx, p.ID))
	_, err = e.sessions.GetToken(ctx, p.ID)
	assert.Error(t, err)
}

func TestDeletePersonDetachesNode(t *testing.T) {
	e := newTestEnv(t)
	svc, _ := newPersonService(e)
	ctx := context.Background()

	p, err := svc.Register(ctx, alice)
	require.NoError(t, err)
	e.graph.befriend(p.ID, 77)

	require.NoError(t, svc.DeletePerson(ctx, p.ID))
	assert.False(t, e.graph.persons[p.ID])
	assert.Zero(t, e.graph.friendCount())

	_, err = svc.FindPerson(ctx, p.ID)
	assert.True(t, pkg.IsKind(err, pkg.KindNotFound))

	err = svc.DeletePerson(ctx, p.ID)
	assert.True(t, pkg.IsKind(err, pkg.KindNotFound))
}
