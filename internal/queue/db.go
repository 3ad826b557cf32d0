package queue

import (
	"encoding/json"

	"github.com/eatsome/printer-daemon/internal/apperr"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openGorm(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperr.QueueWrap(err, "open database %s", dbPath)
	}
	return db, nil
}

func jsonMarshal(v any) ([]byte, error)          { return json.Marshal(v) }
func jsonUnmarshal(b []byte, v any) error        { return json.Unmarshal(b, v) }
