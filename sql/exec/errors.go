package exec

import "github.com/kjm99d/SpeedSQL/dberr"

func dberrNoSuchTable(name string) error {
	return dberr.New(dberr.NotFound, "no such table: "+name)
}

func dberrNoSuchColumn(name string) error {
	return dberr.New(dberr.NotFound, "no such column: "+name)
}
