package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"messenger/config"

	"github.com/gocql/gocql"
)

// Store - минимальный интерфейс к колоночному хранилищу, который нужен
// сервисам мессенджера. Реализуется поверх gocql и in-memory стором в тестах.
type Store interface {
	// Exec выполняет statement без результата (INSERT/UPDATE/DELETE/DDL)
	Exec(ctx context.Context, stmt string, values ...interface{}) error
	// Select возвращает строки в том порядке, в котором их отдает хранилище
	// (clustering order таблицы)
	Select(ctx context.Context, stmt string, values ...interface{}) ([]map[string]interface{}, error)
	// SelectOne возвращает первую строку или nil, если строк нет
	SelectOne(ctx context.Context, stmt string, values ...interface{}) (map[string]interface{}, error)
	// ExecCAS выполняет conditional write (IF NOT EXISTS). Возвращает applied
	// и предыдущую строку, если запись уже существовала
	ExecCAS(ctx context.Context, stmt string, values ...interface{}) (bool, map[string]interface{}, error)
	Close()
}

var Cassandra Store

// CassandraStore - реализация Store поверх gocql-сессии
type CassandraStore struct {
	session *gocql.Session
}

func NewCassandraStore(session *gocql.Session) *CassandraStore {
	return &CassandraStore{session: session}
}

func (s *CassandraStore) Exec(ctx context.Context, stmt string, values ...interface{}) error {
	return s.session.Query(stmt, values...).WithContext(ctx).Exec()
}

func (s *CassandraStore) Select(ctx context.Context, stmt string, values ...interface{}) ([]map[string]interface{}, error) {
	iter := s.session.Query(stmt, values...).WithContext(ctx).Iter()
	rows := make([]map[string]interface{}, 0)
	for {
		row := map[string]interface{}{}
		if !iter.MapScan(row) {
			break
		}
		rows = append(rows, row)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *CassandraStore) SelectOne(ctx context.Context, stmt string, values ...interface{}) (map[string]interface{}, error) {
	row := map[string]interface{}{}
	err := s.session.Query(stmt, values...).WithContext(ctx).MapScan(row)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *CassandraStore) ExecCAS(ctx context.Context, stmt string, values ...interface{}) (bool, map[string]interface{}, error) {
	prev := map[string]interface{}{}
	applied, err := s.session.Query(stmt, values...).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, nil, err
	}
	return applied, prev, nil
}

func (s *CassandraStore) Close() {
	s.session.Close()
}

// ConnectCassandra создает сессию к кластеру и накатывает схему мессенджера
func ConnectCassandra() error {
	if Cassandra != nil {
		log.Println("Cassandra store is already initialized")
		return nil
	}
	if config.AppConfig == nil {
		return fmt.Errorf("AppConfig is not loaded")
	}
	conf := config.AppConfig.Cassandra
	if len(conf.Hosts) == 0 {
		return fmt.Errorf("cassandra hosts are not configured")
	}

	// Отдельная сессия без keyspace, чтобы создать его при первом запуске
	cluster := gocql.NewCluster(conf.Hosts...)
	if conf.Port != 0 {
		cluster.Port = conf.Port
	}
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 10 * time.Second

	setupSession, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to Cassandra: %w", err)
	}
	if err := CreateKeyspace(setupSession, conf.Keyspace); err != nil {
		setupSession.Close()
		return err
	}
	setupSession.Close()

	cluster.Keyspace = conf.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to keyspace %s: %w", conf.Keyspace, err)
	}

	store := NewCassandraStore(session)
	if err := CreateMessengerTables(store); err != nil {
		store.Close()
		return err
	}

	Cassandra = store
	return nil
}

func CloseCassandra() {
	if Cassandra != nil {
		Cassandra.Close()
		Cassandra = nil
	}
}
