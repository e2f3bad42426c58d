package model

// Entity describes one persisted table.
type Entity struct {
	Table string
	Model any
}

// Registry lists every entity in dependency order: referenced tables come
// before the tables that reference them.
func Registry() []Entity {
	return []Entity{
		{Table: User{}.TableName(), Model: &User{}},
		{Table: Role{}.TableName(), Model: &Role{}},
		{Table: UserService{}.TableName(), Model: &UserService{}},
		{Table: LoginHistory{}.TableName(), Model: &LoginHistory{}},
	}
}

// Models returns the registry's models in migration order.
func Models() []any {
	entities := Registry()
	models := make([]any, 0, len(entities))
	for _, e := range entities {
		models = append(models, e.Model)
	}
	return models
}
