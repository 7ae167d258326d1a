// Package oktify audits identity-lifecycle changes recorded in an Okta
// tenant's System Log: administrator role changes, user lifecycle
// transitions, group membership and application assignment.
//
// Quick start:
//
//	c, err := oktify.New(
//	    oktify.WithDomain("https://acme.okta.com"),
//	    oktify.WithToken(os.Getenv("OKTA_API_TOKEN")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, _ := oktify.ParseWindow("2024-05-01", "2024-05-31")
//	for row, err := range c.Rows(ctx, oktify.Groups, w) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(row.TargetUser, row.Fields["action"], row.Fields["group_name"])
//	}
//
// Rows are yielded lazily, oldest first, one per distinct event id. Pages
// are fetched on demand; rate limits and transient failures are retried
// with backoff. A Client holds no per-run state and may be shared.
package oktify
