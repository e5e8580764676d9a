package main

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bestqrov/lahwla/core"
	"github.com/bestqrov/lahwla/core/student"
	emailsvc "github.com/bestqrov/lahwla/services/email"
	logsvc "github.com/bestqrov/lahwla/services/logger"
	dummydb "github.com/bestqrov/lahwla/storage/database/dummy"
)

func setupCLI(t *testing.T) (*commandLine, *student.Service) {
	t.Helper()
	conf := &core.Config{
		TestMode:         true,
		AppName:          "Lahwla",
		SchoolName:       "Galaxy School",
		DefaultFromEmail: mail.Address{Name: "Lahwla", Address: "noreply@localhost"},
	}
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setupCLI() failed: %v", err)
	}
	svc := student.NewService(
		dummydb.NewStudentRepository(db),
		emailsvc.NewConsoleServiceMock(conf),
		logsvc.NewStdLogger(log.New(io.Discard, "", 0)),
		conf,
	)
	return &commandLine{studentSvc: svc}, svc
}

func mockReadPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_run_usage(t *testing.T) {
	cli, _ := setupCLI(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: []string{"admin"}},
		{name: "unknown command", args: []string{"admin", "frobnicate"}},
		{name: "resetpassword without email", args: []string{"admin", "resetpassword"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, cli.run(tt.args), errHelp)
		})
	}
}

func Test_run_resetPassword(t *testing.T) {
	cli, svc := setupCLI(t)
	ctx := context.Background()

	st, err := svc.Enroll(ctx, student.Enrollment{Name: "Karim", Surname: "Idrissi", Password: "old-pass"})
	require.NoError(t, err)

	mockReadPassword(t, "new-pass")
	require.NoError(t, cli.run([]string{"admin", "resetpassword", "-email", st.Email}))

	got, err := svc.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("new-pass"))
	assert.Error(t, got.CheckPassword("old-pass"))
}

func Test_run_resetPassword_unknownEmail(t *testing.T) {
	cli, _ := setupCLI(t)

	mockReadPassword(t, "new-pass")
	assert.ErrorIs(t, cli.run([]string{"admin", "resetpassword", "-email", "ghost@galaxyschool.com"}), student.ErrNotFound)
}

func Test_run_resetPassword_emptyPassword(t *testing.T) {
	cli, svc := setupCLI(t)

	st, err := svc.Enroll(context.Background(), student.Enrollment{Name: "Karim", Surname: "Idrissi"})
	require.NoError(t, err)

	mockReadPassword(t, "")
	assert.ErrorIs(t, cli.run([]string{"admin", "resetpassword", "-email", st.Email}), errHelp)
}
