package schema

// Default returns the descriptor for the core auth tables.
//
// The declarations mirror what the auth framework issues queries against:
// unique fields decide unique-vs-first retrieval on reads, indexed fields
// decide which single-clause equality and range shapes avoid a full scan,
// and compound indexes cover the allow-listed multi-clause lookups.
func Default() *Schema {
	s, err := New(builtinTables())
	if err != nil {
		// The builtin declaration is static; a failure here is a bug.
		panic(err)
	}
	return s
}

func builtinTables() []Table {
	return []Table{
		{
			Name: "user",
			Fields: []Field{
				{Name: "name", Type: TypeString},
				{Name: "email", Type: TypeString, Unique: true},
				{Name: "emailVerified", Type: TypeBool},
				{Name: "image", Type: TypeString, Optional: true},
				{Name: "createdAt", Type: TypeTime},
				{Name: "updatedAt", Type: TypeTime},
			},
		},
		{
			Name: "session",
			Fields: []Field{
				{Name: "userId", Type: TypeString, Indexed: true},
				{Name: "token", Type: TypeString, Unique: true},
				{Name: "expiresAt", Type: TypeTime, Indexed: true},
				{Name: "ipAddress", Type: TypeString, Optional: true},
				{Name: "userAgent", Type: TypeString, Optional: true},
				{Name: "createdAt", Type: TypeTime},
				{Name: "updatedAt", Type: TypeTime},
			},
		},
		{
			Name: "account",
			Fields: []Field{
				{Name: "userId", Type: TypeString, Indexed: true},
				{Name: "accountId", Type: TypeString},
				{Name: "providerId", Type: TypeString},
				{Name: "accessToken", Type: TypeString, Optional: true},
				{Name: "refreshToken", Type: TypeString, Optional: true},
				{Name: "idToken", Type: TypeString, Optional: true},
				{Name: "accessTokenExpiresAt", Type: TypeTime, Optional: true},
				{Name: "refreshTokenExpiresAt", Type: TypeTime, Optional: true},
				{Name: "scope", Type: TypeString, Optional: true},
				{Name: "password", Type: TypeString, Optional: true},
				{Name: "createdAt", Type: TypeTime},
				{Name: "updatedAt", Type: TypeTime},
			},
			Compound: []CompoundIndex{
				{Name: "accountId_providerId", Fields: []string{"accountId", "providerId"}},
			},
		},
		{
			Name: "verification",
			Fields: []Field{
				{Name: "identifier", Type: TypeString, Indexed: true},
				{Name: "value", Type: TypeString},
				{Name: "expiresAt", Type: TypeTime, Indexed: true},
				{Name: "createdAt", Type: TypeTime},
				{Name: "updatedAt", Type: TypeTime},
			},
		},
		{
			Name: "jwks",
			Fields: []Field{
				{Name: "publicKey", Type: TypeString},
				{Name: "privateKey", Type: TypeString},
				{Name: "createdAt", Type: TypeTime},
			},
		},
		{
			Name: "twoFactor",
			Fields: []Field{
				{Name: "userId", Type: TypeString, Unique: true},
				{Name: "secret", Type: TypeString},
				{Name: "backupCodes", Type: TypeString},
			},
		},
		{
			Name: "oauthApplication",
			Fields: []Field{
				{Name: "name", Type: TypeString},
				{Name: "clientId", Type: TypeString, Unique: true},
				{Name: "clientSecret", Type: TypeString},
				{Name: "redirectURLs", Type: TypeString},
				{Name: "metadata", Type: TypeString, Optional: true},
				{Name: "type", Type: TypeString},
				{Name: "disabled", Type: TypeBool},
				{Name: "userId", Type: TypeString, Optional: true},
				{Name: "createdAt", Type: TypeTime},
				{Name: "updatedAt", Type: TypeTime},
			},
		},
		{
			Name: "oauthAccessToken",
			Fields: []Field{
				{Name: "accessToken", Type: TypeString, Unique: true},
				{Name: "refreshToken", Type: TypeString, Indexed: true},
				{Name: "accessTokenExpiresAt", Type: TypeTime},
				{Name: "refreshTokenExpiresAt", Type: TypeTime},
				{Name: "clientId", Type: TypeString},
				{Name: "userId", Type: TypeString, Indexed: true},
				{Name: "scopes", Type: TypeString},
				{Name: "createdAt", Type: TypeTime},
				{Name: "updatedAt", Type: TypeTime},
			},
		},
		{
			Name: "oauthConsent",
			Fields: []Field{
				{Name: "clientId", Type: TypeString},
				{Name: "userId", Type: TypeString, Indexed: true},
				{Name: "scopes", Type: TypeString},
				{Name: "consentGiven", Type: TypeBool},
				{Name: "createdAt", Type: TypeTime},
				{Name: "updatedAt", Type: TypeTime},
			},
			Compound: []CompoundIndex{
				{Name: "userId_clientId", Fields: []string{"userId", "clientId"}},
			},
		},
	}
}
