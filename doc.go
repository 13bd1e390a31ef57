// Package moemail provides a Go client for Moemail-compatible temporary
// email services.
//
// The client provisions a disposable mailbox, polls its inbox and pulls a
// verification code out of incoming messages. It is built for sign-up and
// login automation where an email round trip has to be completed without
// a real mailbox.
//
// Basic usage:
//
//	client, err := moemail.New(
//	    moemail.WithAPIKey("your-api-key"),
//	    moemail.WithLogger(moemail.SlogLogger(slog.Default())),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !client.Provision(ctx, "") {
//	    log.Fatal("could not create mailbox")
//	}
//	mb, _ := client.Mailbox()
//	fmt.Println("Send the code to:", mb.Address)
//
//	started := time.Now()
//	// ... trigger the email ...
//	code, ok := client.PollForCode(ctx, 2*time.Minute, 4*time.Second, started)
//	if ok {
//	    fmt.Println("Code:", code)
//	}
//
// None of the client's operations return errors. Transport failures,
// provider errors and malformed responses are reported through the
// configured LogFunc and surface as a false result, because "no code yet"
// is the normal outcome of most polls.
//
// A Client holds one mailbox at a time and is not safe for concurrent use.
// Create one client per mailbox when provisioning in parallel.
package moemail
