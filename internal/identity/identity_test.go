package identity

import "testing"

func TestHasCapability(t *testing.T) {
	c := Caller{
		PersonID:   "p-1",
		ActiveRole: RoleRequester,
		HeldRoles:  []string{RoleCustodian, "  Coordinator "},
	}

	if !c.HasCapability(RoleRequester) {
		t.Fatal("active role should grant capability")
	}
	if !c.HasCapability(RoleCustodian) {
		t.Fatal("held role should grant capability")
	}
	// 大小写与空白不敏感
	if !c.HasCapability("COORDINATOR") {
		t.Fatal("capability check should be case-insensitive")
	}
	if c.HasCapability(RoleGuard) {
		t.Fatal("missing role should not grant capability")
	}
	if c.HasCapability("") {
		t.Fatal("empty role should never match")
	}
}

func TestValid(t *testing.T) {
	if (Caller{}).Valid() {
		t.Fatal("empty caller should be invalid")
	}
	if (Caller{PersonID: "   "}).Valid() {
		t.Fatal("blank person id should be invalid")
	}
	if !(Caller{PersonID: "p-1"}).Valid() {
		t.Fatal("caller with person id should be valid")
	}
}
