package domain

var Tables = []interface{}{
	// Accounts
	&Tenant{},
	&User{},
	// Gateway
	&Instance{},
	&CredentialRecord{},
	// Ticketing
	&Contact{},
	&Ticket{},
	&Message{},
	&Queue{},
}
