package types

// ConnectionProfile is a saved set of parameters for reaching one Redis instance.
type ConnectionProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	DB        *int   `json:"db,omitempty"`
	Separator string `json:"separator,omitempty"`
}

// DefaultDB returns the configured default database index, or 0 when unset.
func (p ConnectionProfile) DefaultDB() int {
	if p.DB == nil {
		return 0
	}
	return *p.DB
}
