package scanning

// visionPrompt is shared by the local and cloud vision models. It asks for the
// full structured field set in one strict JSON object.
const visionPrompt = `You are analyzing a photo that is usually a shop receipt or invoice. Carefully read all text in the image and extract:

1. **is_receipt**: true if the image is a paper receipt or invoice, false if it is a photo of an object or anything else.
2. **merchant**: the store or business name, usually the largest text at the top of the receipt.
3. **date**: the transaction or purchase date, converted to ISO 8601 (YYYY-MM-DD).
4. **time**: the transaction time in 24-hour HH:MM, if printed.
5. **amount**: the final total or amount due as a number (e.g. 42.75), usually at the bottom near "TOTAL" or "Amount Due".
6. **payment_method**: how it was paid (e.g. "Visa", "Cash", "EFTPOS"), if printed.
7. **category_guess**: a short spending category guessed from the merchant (e.g. "Groceries", "Dining").
8. **items_summary**: a brief comma-separated summary of the main purchased items.
9. **tags**: up to three short lowercase keywords describing the purchase.

Return ONLY a strict JSON object in this exact shape:
{
  "is_receipt": true,
  "merchant": "Store Name",
  "date": "YYYY-MM-DD",
  "time": "HH:MM",
  "amount": 0.00,
  "payment_method": "",
  "category_guess": "",
  "items_summary": "",
  "tags": []
}

Important:
- amount must be a number, not a string
- use "" or null for any field you cannot find
- if is_receipt is false, set amount to 0 and date to null
- do not include any text before or after the JSON
- do not use markdown code blocks`
