// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

// RepositoryConfig selects and configures one document store backend.
type RepositoryConfig struct {
	DatabaseType   string
	DatabaseName   string
	MongoConfig    *MongoDBConfig
	PostgresConfig *PostgreSQLConfig
}

// MongoDBConfig configures the MongoDB backend. Durations are in seconds.
type MongoDBConfig struct {
	// URI wins over the discrete connection fields when set.
	URI        string
	Host       string
	Port       int
	Username   string
	Password   string
	AuthSource string
	ReplicaSet string
	TLS        bool

	ConnectTimeout         int
	SocketTimeout          int
	ServerSelectionTimeout int
	MaxPoolSize            int
	MinPoolSize            int
}

// PostgreSQLConfig configures the PostgreSQL backend. Documents live in
// one JSONB table per collection inside Schema.
type PostgreSQLConfig struct {
	DSN      string
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Schema   string
	SSLMode  string

	ConnectTimeout     int
	MaxOpenConnections int
	MaxIdleConnections int
	MaxLifetime        int
}
