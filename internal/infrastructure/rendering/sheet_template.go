package rendering

// orderSheetTemplate is the built-in purchase order layout. It is parsed once
// at construction, so a syntax error here fails startup rather than the first
// order.
const orderSheetTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Purchase Order {{.OrderID}}</title>
<style>
  body { font-family: 'Helvetica Neue', Arial, sans-serif; font-size: 12px; color: #1a1a1a; margin: 0; }
  .header { display: flex; justify-content: space-between; align-items: flex-start; border-bottom: 3px solid #1a1a1a; padding-bottom: 12px; }
  .header h1 { font-size: 22px; letter-spacing: 2px; margin: 0; }
  .header .meta { text-align: right; font-size: 11px; color: #444; }
  .urgent { display: inline-block; background: #c0392b; color: #fff; font-weight: bold; padding: 2px 8px; border-radius: 3px; font-size: 11px; letter-spacing: 1px; }
  .parties { display: flex; justify-content: space-between; margin-top: 16px; }
  .party { width: 47%; }
  .party h2 { font-size: 11px; text-transform: uppercase; letter-spacing: 1px; color: #888; border-bottom: 1px solid #ddd; padding-bottom: 3px; margin: 0 0 6px; }
  .party p { margin: 2px 0; }
  table.items { width: 100%; border-collapse: collapse; margin-top: 18px; }
  table.items th { text-align: left; font-size: 10px; text-transform: uppercase; letter-spacing: 1px; color: #888; border-bottom: 2px solid #1a1a1a; padding: 4px 6px; }
  table.items td { padding: 5px 6px; border-bottom: 1px solid #e5e5e5; }
  table.items .num { text-align: right; }
  .total-row td { border-bottom: none; border-top: 2px solid #1a1a1a; font-weight: bold; padding-top: 8px; }
  .notes { margin-top: 18px; font-size: 11px; }
  .notes h2 { font-size: 11px; text-transform: uppercase; letter-spacing: 1px; color: #888; margin: 0 0 4px; }
  .footer { margin-top: 28px; font-size: 10px; color: #888; border-top: 1px solid #ddd; padding-top: 6px; }
</style>
</head>
<body>
<div class="header">
  <div>
    <h1>PURCHASE ORDER</h1>
    {{if .Urgent}}<span class="urgent">URGENT</span>{{end}}
  </div>
  <div class="meta">
    <p><strong>Order ref:</strong> {{.OrderID}}</p>
    <p><strong>Date:</strong> {{formatDate .GeneratedAt}}</p>
    {{if .RequestedDate}}<p><strong>Requested delivery:</strong> {{formatDate .RequestedDate}}</p>{{end}}
  </div>
</div>

<div class="parties">
  <div class="party">
    <h2>Supplier</h2>
    <p><strong>{{.SupplierName}}</strong></p>
  </div>
  <div class="party">
    <h2>Deliver To</h2>
    {{if .DeliveryAddress}}<p>{{.DeliveryAddress}}</p>{{end}}
    {{if .ContactName}}<p>Attn: {{.ContactName}}</p>{{end}}
    {{if .ContactPhone}}<p>{{.ContactPhone}}</p>{{end}}
    {{if .ContactEmail}}<p>{{.ContactEmail}}</p>{{end}}
  </div>
</div>

<table class="items">
  <thead>
    <tr>
      <th>Code</th>
      <th>Item</th>
      <th class="num">Qty</th>
      <th>Unit</th>
      <th class="num">Unit Price</th>
      <th class="num">Total</th>
    </tr>
  </thead>
  <tbody>
    {{range .Lines}}
    <tr>
      <td>{{.ProductID}}</td>
      <td>{{default .Name .ProductID}}</td>
      <td class="num">{{formatQty .Quantity}}</td>
      <td>{{.Unit}}</td>
      <td class="num">{{formatMoney .UnitPrice}}</td>
      <td class="num">{{formatMoney .LineTotal}}</td>
    </tr>
    {{end}}
    <tr class="total-row">
      <td colspan="5">Order total</td>
      <td class="num">{{formatMoney .Total}}</td>
    </tr>
  </tbody>
</table>

{{if .Notes}}
<div class="notes">
  <h2>Notes</h2>
  <p>{{.Notes}}</p>
</div>
{{end}}

<div class="footer">
  Please confirm receipt and advise of any substitutions or shortages before dispatch.
</div>
</body>
</html>`
