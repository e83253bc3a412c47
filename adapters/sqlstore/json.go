package sqlstore

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FloatVector is a []float64 stored as a JSON array.
type FloatVector []float64

// Value implements driver.Valuer interface
func (v FloatVector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]float64(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (v *FloatVector) Scan(value interface{}) error {
	var bytes []byte
	switch x := value.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		bytes = x
	case string:
		bytes = []byte(x)
	default:
		return fmt.Errorf("cannot scan %T into FloatVector", value)
	}
	if len(bytes) == 0 {
		*v = nil
		return nil
	}
	var out []float64
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*v = out
	return nil
}
