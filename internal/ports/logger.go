package ports

import "context"

// Logger is the logging sink shared by the ledger service, the stores and the
// quote providers. Fields are passed as at most one map; implementations also
// attach the account carried by ctx (see WithAccountID) unless the map already
// names one.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}

// AccountIDField is the log field key used for account IDs.
const AccountIDField = "accountID"

type accountIDKey struct{}

// WithAccountID tags ctx with the account an operation works on.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey{}, accountID)
}

// AccountIDFrom returns the account set by WithAccountID.
func AccountIDFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(accountIDKey{}).(string)
	return id, ok && id != ""
}

// LogFields merges the context account into fields. The caller's map is
// never modified; an explicit accountID field wins over the context.
func LogFields(ctx context.Context, fields ...map[string]interface{}) map[string]interface{} {
	var base map[string]interface{}
	if len(fields) > 0 {
		base = fields[0]
	}
	id, ok := AccountIDFrom(ctx)
	if !ok {
		return base
	}
	if _, set := base[AccountIDField]; set {
		return base
	}
	merged := make(map[string]interface{}, len(base)+1)
	for k, v := range base {
		merged[k] = v
	}
	merged[AccountIDField] = id
	return merged
}
