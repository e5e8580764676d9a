package main

import "context"

// resetPassword routes a new plaintext through the service's one-way hashing.
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	st, err := cli.studentSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return cli.studentSvc.SetPassword(ctx, st.ID, pwd)
}
