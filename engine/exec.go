package engine

import "fmt"

// Exec prepares sql, steps it until done and finalizes it. Rows, if any, are
// discarded. It is used for transaction control statements.
func Exec(c Conn, sql string) (err error) {
	stmt, err := c.Prepare(sql)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := stmt.Finalize(); ferr != nil && err == nil {
			err = ferr
		}
	}()

	for {
		row, err := stmt.Step()
		if err != nil {
			return err
		}
		if !row {
			return nil
		}
	}
}

// ErrEmptyStatement is returned by drivers when the SQL text holds no statement.
var ErrEmptyStatement = NewError(ResultMisuse, fmt.Errorf("sqlite: empty statement"))
