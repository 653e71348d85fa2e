// Command generate writes the sample scenario sheets and the demo SQLite
// warehouse they run against:
//
//	go run ./testdata/generate.go
//	mapcheck run testdata/scenarios.xlsx --dialect sqlite --dsn testdata/demo.db
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"reflect"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"
)

// Scenario is one mapping-sheet row
type Scenario struct {
	Name               string `parquet:"Scenario_Name" sheet:"Scenario_Name"`
	SourceTable        string `parquet:"Source_Table" sheet:"Source_Table"`
	TargetTable        string `parquet:"Target_Table" sheet:"Target_Table"`
	SourceJoinKey      string `parquet:"Source_Join_Key" sheet:"Source_Join_Key"`
	TargetJoinKey      string `parquet:"Target_Join_Key" sheet:"Target_Join_Key"`
	TargetColumn       string `parquet:"Target_Column" sheet:"Target_Column"`
	DerivationLogic    string `parquet:"Derivation_Logic" sheet:"Derivation_Logic"`
	ValidationType     string `parquet:"Validation_Type" sheet:"Validation_Type"`
	BusinessRule       string `parquet:"Business_Rule" sheet:"Business_Rule"`
	ReferenceTable     string `parquet:"Reference_Table" sheet:"Reference_Table"`
	ReferenceJoinKey   string `parquet:"Reference_Join_Key" sheet:"Reference_Join_Key"`
	BusinessConditions string `parquet:"Business_Conditions" sheet:"Business_Conditions"`
	HardcodedValues    string `parquet:"Hardcoded_Values" sheet:"Hardcoded_Values"`
}

var scenarios = []Scenario{
	{
		Name: "S001_Full_Name", SourceTable: "customers", TargetTable: "customer_dim",
		SourceJoinKey: "customer_id", TargetJoinKey: "customer_id", TargetColumn: "full_name",
		DerivationLogic: "CONCAT(first_name, ' ', last_name)", ValidationType: "Concatenation",
		BusinessRule: "Full name is first and last name separated by a space",
	},
	{
		Name: "S002_Account_Balance", SourceTable: "transactions", TargetTable: "account_summary",
		SourceJoinKey: "txn_id", TargetJoinKey: "account_id", TargetColumn: "total_balance",
		DerivationLogic: "SUM(amount) GROUP_BY account_id", ValidationType: "Aggregation",
		BusinessRule: "Balance is the sum of all transactions of the account",
	},
	{
		Name: "S003_Customer_Tier", SourceTable: "customers", TargetTable: "customer_dim",
		SourceJoinKey: "customer_id", TargetJoinKey: "customer_id", TargetColumn: "tier",
		ValidationType: "Conditional Logic", BusinessConditions: "balance > 50000 THEN Premium; ELSE Standard",
		BusinessRule: "Customers above 50k are Premium",
	},
	{
		Name: "S004_Segment_Name", SourceTable: "customers", TargetTable: "customer_dim",
		SourceJoinKey: "customer_id", TargetJoinKey: "customer_id", TargetColumn: "segment_name",
		DerivationLogic: "VLOOKUP(segment_code, customer_segments, segment_name)", ValidationType: "Lookup",
		ReferenceTable: "customer_segments", ReferenceJoinKey: "segment_code",
	},
	{
		Name: "S005_Status_Label", SourceTable: "customers", TargetTable: "customer_dim",
		SourceJoinKey: "customer_id", TargetJoinKey: "customer_id", TargetColumn: "status",
		DerivationLogic: "status_code", ValidationType: "Direct Mapping",
		HardcodedValues: "A=Active,I=Inactive",
	},
	{
		Name: "S006_Email_Completeness", SourceTable: "customers", SourceJoinKey: "customer_id",
		DerivationLogic: "CHECK_NOT_NULL(email)", ValidationType: "Data Completeness",
		BusinessRule: "Every customer has an email address",
	},
	{
		Name: "S007_Interest", SourceTable: "customers", TargetTable: "customer_dim",
		SourceJoinKey: "customer_id", TargetJoinKey: "customer_id", TargetColumn: "interest",
		DerivationLogic: "balance * 0.02", ValidationType: "Calculation",
	},
	{
		Name: "S008_Placeholder", SourceTable: "customers", TargetTable: "customer_dim",
		SourceJoinKey: "customer_id", TargetJoinKey: "customer_id", TargetColumn: "full_name",
		ValidationType: "Direct Mapping", BusinessRule: "Logic not specified yet",
	},
}

var warehouse = []string{
	`CREATE TABLE customers (customer_id INTEGER, first_name TEXT, last_name TEXT, email TEXT,
		balance REAL, segment_code TEXT, status_code TEXT)`,
	`CREATE TABLE customer_dim (customer_id INTEGER, full_name TEXT, tier TEXT, segment_name TEXT,
		status TEXT, interest REAL)`,
	`CREATE TABLE customer_segments (segment_code TEXT, segment_name TEXT)`,
	`CREATE TABLE transactions (txn_id INTEGER, account_id INTEGER, amount REAL)`,
	`CREATE TABLE account_summary (account_id INTEGER, total_balance REAL)`,
	`INSERT INTO customers VALUES
		(1, 'John', 'Smith', 'john@example.com', 75000, 'R', 'A'),
		(2, 'Jane', 'Doe', 'jane@example.com', 42000, 'W', 'A'),
		(3, 'Ana', 'Lima', NULL, 51000.5, 'R', 'I'),
		(4, 'Raj', 'Patel', 'raj@example.com', 1000, 'C', 'A')`,
	`INSERT INTO customer_dim VALUES
		(1, 'John Smith', 'Premium', 'Retail', 'Active', 1500),
		(2, 'Jane X. Doe', 'Standard', 'Wealth', 'Active', 840),
		(3, 'Ana Lima', 'Premium', 'Retail', 'Inactive', 1020.01),
		(5, 'Li Wei', 'Standard', 'Corporate', 'Active', 0)`,
	`INSERT INTO customer_segments VALUES ('R', 'Retail'), ('W', 'Wealth'), ('C', 'Corporate')`,
	`INSERT INTO transactions VALUES (1, 100, 250.0), (2, 100, -50.0), (3, 101, 75.25), (4, 102, 10)`,
	`INSERT INTO account_summary VALUES (100, 200.0), (101, 75.25), (102, 12)`,
}

func main() {
	if err := writeParquet("scenarios.parquet"); err != nil {
		log.Fatal(err)
	}
	if err := writeWorkbook("scenarios.xlsx"); err != nil {
		log.Fatal(err)
	}
	if err := writeWarehouse("demo.db"); err != nil {
		log.Fatal(err)
	}
	log.Printf("Generated scenarios.parquet, scenarios.xlsx and demo.db with %d scenarios", len(scenarios))
}

func writeParquet(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Scenario](file)
	if _, err := writer.Write(scenarios); err != nil {
		return err
	}
	return writer.Close()
}

func writeWorkbook(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Scenarios"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	fields := reflect.TypeOf(Scenario{})
	header := make([]interface{}, fields.NumField())
	for i := range header {
		header[i] = fields.Field(i).Tag.Get("sheet")
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, s := range scenarios {
		v := reflect.ValueOf(s)
		row := make([]interface{}, v.NumField())
		for j := range row {
			row[j] = v.Field(j).Interface()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return f.SaveAs(path)
}

func writeWarehouse(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, stmt := range warehouse {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}
