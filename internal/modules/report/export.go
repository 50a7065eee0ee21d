// README: Spreadsheet export of archived orders and vouchers.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"centraltaxi/internal/modules/order"
	"centraltaxi/internal/modules/voucher"
	"centraltaxi/internal/types"
)

type ArchiveSource interface {
	ListArchived(ctx context.Context, day string) ([]order.Terminal, error)
}

type VoucherSource interface {
	List(ctx context.Context, from, to time.Time) ([]voucher.Voucher, error)
}

type Exporter struct {
	orders   ArchiveSource
	vouchers VoucherSource
	loc      *time.Location
}

func NewExporter(orders ArchiveSource, vouchers VoucherSource, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{orders: orders, vouchers: vouchers, loc: loc}
}

var archiveHeader = []interface{}{
	"Pedido", "Estado", "Cliente", "Telefono", "Direccion", "Sector", "Coordenadas",
	"Destino", "Empresa", "Autorizacion", "Unidad", "Conductor", "Placa",
	"Operador", "Creado", "Cerrado", "Cerrado por", "Motivo",
}

var voucherHeader = []interface{}{
	"Pedido", "Autorizacion", "Empresa", "Cliente", "Telefono", "Origen", "Destino",
	"Unidad", "Tipo", "Numero fisico", "Valor", "Operador", "Fecha",
}

// Archive writes every order archived on day as one sheet.
func (e *Exporter) Archive(ctx context.Context, day string, w io.Writer) error {
	if _, err := types.ParseDay(day, e.loc); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	orders, err := e.orders.ListArchived(ctx, day)
	if err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []interface{}{
			o.ID, string(o.Status), o.ClientName, o.ClientPhone, o.Address, o.Sector, string(o.Coords),
			o.Destination, o.Empresa, authCell(o.Authorization), o.Unit, o.Name, o.Plate,
			o.Operator, e.stamp(o.CreatedAt), e.stamp(o.ClosedAt), o.ClosedBy, o.Reason,
		})
	}
	return writeSheet(w, "Archivo "+day, archiveHeader, rows)
}

// Vouchers writes the vouchers issued between from and to, both days inclusive.
func (e *Exporter) Vouchers(ctx context.Context, from, to time.Time, w io.Writer) error {
	vs, err := e.vouchers.List(ctx, from, to)
	if err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(vs))
	for _, v := range vs {
		rows = append(rows, []interface{}{
			v.OrderID, v.Authorization, v.Empresa, v.ClientName, v.ClientPhone, v.Origin, v.Destination,
			v.Unit, string(v.Kind), v.PhysicalNumber, float64(v.Amount.Amount) / 100, v.Operator, e.stamp(v.CreatedAt),
		})
	}
	return writeSheet(w, "Vouchers", voucherHeader, rows)
}

func (e *Exporter) stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.loc).Format("02-01-2006 15:04")
}

func authCell(n *int64) interface{} {
	if n == nil {
		return ""
	}
	return *n
}

func writeSheet(w io.Writer, name string, header []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", name); err != nil {
		return err
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last, bold); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}
