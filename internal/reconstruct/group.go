package reconstruct

import "github.com/roach88/mallstore/internal/model"

// GroupOrderLines folds lines into orders keyed by order number, in order
// of first appearance. The first line of each order supplies the header;
// every line, the first included, is appended to Lines.
//
// Header fields are assumed identical across lines of one order. Rows
// that disagree are not reconciled: later values are ignored.
func GroupOrderLines(lines []model.OrderLine) []model.Order {
	orders := []model.Order{}
	index := make(map[string]int)

	for _, line := range lines {
		i, ok := index[line.OrderNo]
		if !ok {
			i = len(orders)
			index[line.OrderNo] = i
			orders = append(orders, model.Order{
				OrderNo:      line.OrderNo,
				Date:         line.Date,
				DeliveryDate: line.DeliveryDate,
				Status:       line.Status,
				Customer:     line.Customer,
				Lines:        []model.OrderLine{},
			})
		}
		orders[i].Lines = append(orders[i].Lines, line)
	}
	return orders
}
