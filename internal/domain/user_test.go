package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testBook(bookID int, tags ...string) *Book {
	return &Book{
		BookID:    bookID,
		Title:     "Test Book",
		Tags:      tags,
		PDFFileID: "abc123",
		PDFPath:   "abc123.pdf",
	}
}

func TestPermissionsAllowsBook(t *testing.T) {
	p := Permissions{Books: []string{"7", "42"}}
	assert.True(t, p.AllowsBook("42"))
	assert.False(t, p.AllowsBook("43"))

	all := Permissions{Books: []string{GrantAll}}
	assert.True(t, all.AllowsBook("42"))
	assert.True(t, all.AllowsBook("99999"))

	none := Permissions{}
	assert.False(t, none.AllowsBook("42"))
}

func TestPermissionsAllowsAnyTag(t *testing.T) {
	p := Permissions{Tags: []string{"science", "math"}}
	assert.True(t, p.AllowsAnyTag([]string{"history", "math"}))
	assert.False(t, p.AllowsAnyTag([]string{"history"}))
	assert.False(t, p.AllowsAnyTag(nil))

	all := Permissions{Tags: []string{GrantAll}}
	assert.True(t, all.AllowsAnyTag([]string{"anything"}))
	assert.False(t, all.AllowsAnyTag(nil), "tag sentinel grants tagged books only")
}

func TestCanAccessAdminBypass(t *testing.T) {
	// Admin needs no grants at all.
	assert.True(t, CanAccess(RoleAdmin, Permissions{}, testBook(1)))
	assert.True(t, CanAccess(RoleAdmin, Permissions{}, testBook(2, "restricted")))
}

func TestCanAccessExplicitBookGrant(t *testing.T) {
	perms := Permissions{Books: []string{"42"}}
	assert.True(t, CanAccess(RoleUser, perms, testBook(42)))
	assert.False(t, CanAccess(RoleUser, perms, testBook(43)))
}

func TestCanAccessTagGrant(t *testing.T) {
	perms := Permissions{Tags: []string{"science"}}
	assert.True(t, CanAccess(RoleUser, perms, testBook(7, "science", "physics")))
	assert.False(t, CanAccess(RoleUser, perms, testBook(7, "history")))
}

func TestCanAccessEitherGrantSuffices(t *testing.T) {
	// Book grant without tag overlap, and tag grant without book grant,
	// are each sufficient on their own.
	perms := Permissions{Books: []string{"1"}, Tags: []string{"math"}}
	assert.True(t, CanAccess(RoleUser, perms, testBook(1, "history")))
	assert.True(t, CanAccess(RoleUser, perms, testBook(2, "math")))
	assert.False(t, CanAccess(RoleUser, perms, testBook(3, "history")))
}

func TestCanAccessAllSentinel(t *testing.T) {
	perms := Permissions{Books: []string{GrantAll}}
	for _, b := range []*Book{testBook(1), testBook(2, "anything"), testBook(99)} {
		assert.True(t, CanAccess(RoleUser, perms, b))
	}
}

func TestCanAccessUnknownRoleDenied(t *testing.T) {
	perms := Permissions{Books: []string{GrantAll}, Tags: []string{GrantAll}}
	assert.False(t, CanAccess(Role("superuser"), perms, testBook(1, "science")))
	assert.False(t, CanAccess(Role(""), perms, testBook(1, "science")))
}

func TestUserCanAccessDelegates(t *testing.T) {
	u := &User{Role: RoleUser, Permissions: Permissions{Books: []string{"7"}}}
	assert.True(t, u.CanAccess(testBook(7)))
	assert.False(t, u.CanAccess(testBook(8)))
	assert.False(t, u.IsAdmin())

	admin := &User{Role: RoleAdmin}
	assert.True(t, admin.CanAccess(testBook(8)))
	assert.True(t, admin.IsAdmin())
}

func TestBookIDString(t *testing.T) {
	assert.Equal(t, "42", testBook(42).BookIDString())
}

func TestBookFileIDs(t *testing.T) {
	b := &Book{PDFFileID: "pdf1", CoverFileID: "cov1"}
	assert.Equal(t, []string{"pdf1", "cov1"}, b.FileIDs())

	noCover := &Book{PDFFileID: "pdf1"}
	assert.Equal(t, []string{"pdf1"}, noCover.FileIDs())
}
