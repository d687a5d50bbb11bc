package config

// DefaultConfigYAML 内置默认配置，外部 config.yaml 可覆盖其中任意字段
var DefaultConfigYAML = []byte(`server:
  port: ":8080"
  mode: "debug"
  base_url: "http://localhost:8080"

database:
  driver: "memory"
  host: "127.0.0.1"
  port: "3306"
  username: "moneysync"
  password: "moneysync"
  dbname: "moneysync"
  charset: "utf8mb4"

jwt:
  secret: "moneysync-dev-secret"
  expire_hours: 24
`)
